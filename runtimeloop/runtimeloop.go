// Package runtimeloop implements the Runtime Loop: the single cooperative
// driver that polls the bridge's "next" endpoint, dispatches into the
// registry, and reports the outcome back. Structured like the teacher's
// main() goroutine-plus-signal-shutdown shape, but running the poll/execute
// cycle itself on the calling goroutine per spec's single-threaded model.
package runtimeloop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	apierrors "github.com/browserbase/sdk-functions-go/errors"
	"github.com/browserbase/sdk-functions-go/models"
	"github.com/browserbase/sdk-functions-go/registry"
)

// Loop drives the poll/execute/report cycle against a bridge reachable at
// RuntimeAPI.
type Loop struct {
	RuntimeAPI string
	Registry   *registry.Registry
	Production bool
	HTTPClient *http.Client
}

// New builds a Loop with a default HTTP client.
func New(runtimeAPI string, reg *registry.Registry, production bool) *Loop {
	return &Loop{
		RuntimeAPI: runtimeAPI,
		Registry:   reg,
		Production: production,
		HTTPClient: &http.Client{Timeout: 0}, // the next-GET is a deliberate long poll
	}
}

// Run executes iterations until ctx is canceled. A system error in
// production mode exits the process (see systemError).
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("runtime loop stopping: context canceled")
			return
		default:
		}

		if !l.iterate(ctx) {
			return
		}
	}
}

// iterate runs one poll/execute/report cycle and reports whether the loop
// should continue. Every path returns true: a system error in production
// exits the process inside systemError instead of returning.
func (l *Loop) iterate(ctx context.Context) bool {
	event, requestID, err := l.fetchNext(ctx)
	if err != nil {
		return l.systemError("failed to fetch next invocation", err)
	}

	result, handlerErr := l.Registry.Execute(ctx, event.FunctionName, event.Params)
	if handlerErr != nil {
		if _, notFound := handlerErr.(*registry.ErrFunctionNotFound); notFound {
			return l.systemError("function not found in registry", handlerErr)
		}

		re := apierrors.Normalize(handlerErr)
		if err := l.postError(ctx, requestID, re); err != nil {
			return l.systemError("failed to post invocation error", err)
		}
		return true
	}

	if err := l.postResponse(ctx, requestID, result); err != nil {
		return l.systemError("failed to post invocation response", err)
	}
	return true
}

// systemError logs err. In production it then exits the process via
// log.Fatal (the container recycles it); otherwise it returns true so the
// loop continues.
func (l *Loop) systemError(msg string, err error) bool {
	log.Error().Err(err).Msg(msg)
	if l.Production {
		log.Fatal().Msg("exiting due to fatal system error in production environment")
	}
	return true
}

func (l *Loop) fetchNext(ctx context.Context) (models.RuntimeEventPayload, string, error) {
	url := fmt.Sprintf("http://%s/2018-06-01/runtime/invocation/next", l.RuntimeAPI)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RuntimeEventPayload{}, "", fmt.Errorf("build next request: %w", err)
	}

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return models.RuntimeEventPayload{}, "", fmt.Errorf("fetch next invocation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.RuntimeEventPayload{}, "", fmt.Errorf("unexpected status fetching next invocation: %d", resp.StatusCode)
	}

	var event models.RuntimeEventPayload
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return models.RuntimeEventPayload{}, "", fmt.Errorf("decode invocation event: %w", err)
	}

	requestID := resp.Header.Get("Lambda-Runtime-Aws-Request-Id")
	return event, requestID, nil
}

func (l *Loop) postResponse(ctx context.Context, requestID string, result interface{}) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal invocation result: %w", err)
	}
	return l.post(ctx, requestID, "response", body)
}

func (l *Loop) postError(ctx context.Context, requestID string, re models.RuntimeError) error {
	body, err := json.Marshal(re)
	if err != nil {
		return fmt.Errorf("marshal invocation error: %w", err)
	}
	return l.post(ctx, requestID, "error", body)
}

func (l *Loop) post(ctx context.Context, requestID, kind string, body []byte) error {
	url := fmt.Sprintf("http://%s/2018-06-01/runtime/invocation/%s/%s", l.RuntimeAPI, requestID, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("unexpected status posting %s: %d", kind, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusBadRequest {
		log.Warn().Str("request_id", requestID).Str("kind", kind).Msg("bridge rejected outcome: request id mismatch")
	}

	return nil
}
