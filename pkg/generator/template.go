package generator

import (
	"context"
	"fmt"
	"strings"
)

// Template renders a deterministic persona statement. It needs no model and
// never fails, so it doubles as the fallback for other backends.
type Template struct{}

// NewTemplate creates a template generator.
func NewTemplate() *Template {
	return &Template{}
}

// Generate implements Generator.
func (t *Template) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bias := strings.TrimRight(strings.TrimSpace(req.Agent.Bias), ".")
	return fmt.Sprintf(
		"As %s, I believe that %s requires careful consideration from my perspective as %s. "+
			"%s. This is a complex issue that needs to be addressed thoughtfully, "+
			"taking into account various factors and potential impacts.",
		req.Agent.Name, req.Topic, req.Agent.Role, bias), nil
}
