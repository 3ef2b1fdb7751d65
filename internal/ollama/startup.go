package ollama

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that Ollama is running and that model is available,
// writing a status line to w. It does not pull missing models.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}
	ok, err := c.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %s is not available. Pull it with: ollama pull %s", model, model)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
