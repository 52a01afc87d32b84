package serverless_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dejobratic/hellodb/internal/health"
	"github.com/dejobratic/hellodb/internal/server"
	"github.com/dejobratic/hellodb/internal/serverless"
	"github.com/stretchr/testify/require"
)

type stubChecker health.Result

func (s stubChecker) Check(context.Context) health.Result { return health.Result(s) }

func newRouter(result health.Result) http.Handler {
	return server.NewRouter(health.NewHandler(stubChecker(result)), server.Options{
		Logger: slog.New(slog.DiscardHandler),
	})
}

// gatewayEvent is the REST API event for GET https://<id>.execute-api.<region>.amazonaws.com/Prod/<path>.
func gatewayEvent(path string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Resource:   path,
		Path:       path,
		RequestContext: events.APIGatewayProxyRequestContext{
			Stage:      "Prod",
			Path:       "/Prod" + path,
			HTTPMethod: http.MethodGet,
		},
	}
}

func TestHandlerRoutesGatewayEvents(t *testing.T) {
	t.Run("reaches the hello route through the stage", func(t *testing.T) {
		handler := serverless.NewHandler(newRouter(health.Result{Outcome: health.Success}), serverless.Options{})

		resp, err := handler(context.Background(), gatewayEvent("/hello"))

		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/json", contentType(resp))
		require.Equal(t, `{"message":"Hello World with DB!"}`, resp.Body)
	})

	t.Run("reports database errors with status 200", func(t *testing.T) {
		handler := serverless.NewHandler(newRouter(health.Result{
			Outcome: health.Failure,
			Message: "DB error: connection refused",
		}), serverless.Options{})

		resp, err := handler(context.Background(), gatewayEvent("/hello"))

		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, `{"error":"DB error: connection refused"}`, resp.Body)
	})

	t.Run("does not prefix a path that already carries the stage", func(t *testing.T) {
		handler := serverless.NewHandler(newRouter(health.Result{Outcome: health.Success}), serverless.Options{})
		event := gatewayEvent("/hello")
		event.Path = "/Prod/hello"

		resp, err := handler(context.Background(), event)

		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("routes on the raw path when the stage is ignored", func(t *testing.T) {
		var gotPath string
		handler := serverless.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
		}), serverless.Options{IgnoreStageInPath: true})

		_, err := handler(context.Background(), gatewayEvent("/hello"))

		require.NoError(t, err)
		require.Equal(t, "/hello", gotPath)
	})

	t.Run("unknown routes are 404", func(t *testing.T) {
		handler := serverless.NewHandler(newRouter(health.Result{Outcome: health.Success}), serverless.Options{})

		resp, err := handler(context.Background(), gatewayEvent("/unknown"))

		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandlerFlushesAfterEachInvocation(t *testing.T) {
	flushes := 0
	handler := serverless.NewHandler(newRouter(health.Result{Outcome: health.Success}), serverless.Options{
		Flush: func(context.Context) { flushes++ },
	})

	for i := 0; i < 2; i++ {
		_, err := handler(context.Background(), gatewayEvent("/hello"))
		require.NoError(t, err)
	}

	require.Equal(t, 2, flushes)
}

// contentType reads the header from whichever map the adapter filled.
func contentType(resp events.APIGatewayProxyResponse) string {
	if ct := resp.Headers["Content-Type"]; ct != "" {
		return ct
	}
	if values := resp.MultiValueHeaders["Content-Type"]; len(values) > 0 {
		return values[0]
	}
	return ""
}
