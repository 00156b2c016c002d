// Package graph defines the GraphQL schema for the chat API and executes
// requests against it.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"defi-chat/internal/config"
	"defi-chat/internal/domain"
)

const healthOK = "ok"

// Sender produces the assistant reply for a user message.
type Sender interface {
	SendMessage(ctx context.Context, message string, scoped config.Env) domain.ChatMessage
}

// Request is a GraphQL request envelope as sent over HTTP.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type chatResponse struct {
	Message domain.ChatMessage
}

// Executor runs GraphQL requests against the chat schema.
type Executor struct {
	schema graphql.Schema
}

// NewExecutor builds the schema with resolvers backed by sender.
func NewExecutor(sender Sender) (*Executor, error) {
	if sender == nil {
		return nil, errors.New("graph: sender must not be nil")
	}
	schema, err := newSchema(sender)
	if err != nil {
		return nil, fmt.Errorf("graph: build schema: %w", err)
	}
	return &Executor{schema: schema}, nil
}

// Execute runs req. The request-scoped Env attached to ctx is handed to
// resolvers.
func (e *Executor) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func newSchema(sender Sender) (graphql.Schema, error) {
	chatMessageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ChatMessage",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.ChatMessage).ID, nil
				},
			},
			"role": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(domain.ChatMessage).Role), nil
				},
			},
			"content": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.ChatMessage).Content, nil
				},
			},
		},
	})

	chatResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ChatResponse",
		Fields: graphql.Fields{
			"message": &graphql.Field{
				Type: graphql.NewNonNull(chatMessageType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(chatResponse).Message, nil
				},
			},
		},
	})

	sendMessageInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "SendMessageInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"message": &graphql.InputObjectFieldConfig{
				Type: graphql.NewNonNull(graphql.String),
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"_health": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return healthOK, nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"sendMessage": &graphql.Field{
				Type: graphql.NewNonNull(chatResponseType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(sendMessageInput),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					input, _ := p.Args["input"].(map[string]interface{})
					message, _ := input["message"].(string)
					reply := sender.SendMessage(p.Context, message, config.EnvFromContext(p.Context))
					return chatResponse{Message: reply}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
