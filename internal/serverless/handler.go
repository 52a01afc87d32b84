// Package serverless adapts the HTTP router to API Gateway proxy events.
package serverless

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// Handler is the function passed to lambda.Start.
type Handler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type Options struct {
	// IgnoreStageInPath routes on the stage-less path API Gateway sends.
	IgnoreStageInPath bool

	// Flush runs after every invocation, before the execution environment
	// can be frozen.
	Flush func(ctx context.Context)
}

// NewHandler routes API Gateway REST events through h. API Gateway strips the
// stage from Path, so it is put back in front: a call to .../Prod/hello reaches
// the /Prod/hello route, the same as on the local server.
func NewHandler(h http.Handler, opts Options) Handler {
	adapter := httpadapter.New(h)

	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if opts.Flush != nil {
			defer opts.Flush(ctx)
		}
		if !opts.IgnoreStageInPath {
			req.Path = withStage(req.Path, req.RequestContext.Stage)
		}
		return adapter.ProxyWithContext(ctx, req)
	}
}

func withStage(path, stage string) string {
	if stage == "" || stage == "$default" {
		return path
	}
	prefix := "/" + stage
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}
