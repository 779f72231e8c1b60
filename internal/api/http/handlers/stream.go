package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/spec-kit/issue-service/internal/reconcile"
	"github.com/spec-kit/issue-service/internal/store"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// streamSnapshots writes each republished snapshot for the query as a
// server-sent event. The reconciler scope is acquired before streaming
// starts and released unconditionally when the client disconnects.
func streamSnapshots(c *fiber.Ctx, reconciler *reconcile.Reconciler, query store.Query, render func(store.Snapshot) any) error {
	scope, err := reconciler.Attach(context.Background(), query)
	if err != nil {
		return apperrors.NewTransportError(err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer scope.Close()
		for snapshot := range scope.Snapshots() {
			payload, err := json.Marshal(render(snapshot))
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", snapshot.Seq, payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client went away; the deferred Close releases the
				// subscription.
				return
			}
		}
	}))
	return nil
}
