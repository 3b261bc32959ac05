package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const filterScriptTimeout = 200 * time.Millisecond

// FilterScript is a compiled per-rule tengo predicate. The script sees a
// `target` map and must assign `match`.
//
//	match := text.contains(text.to_lower(target.title), "founder")
type FilterScript struct {
	compiled *tengo.Compiled
}

func CompileFilterScript(src string) (*FilterScript, error) {
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("text", "enum", "math"))
	if err := script.Add("target", Target{}.scriptValue()); err != nil {
		return nil, err
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("filter script: %w", err)
	}
	return &FilterScript{compiled: compiled}, nil
}

// CheckFilterScript compiles src and dry-runs it against an empty target.
func CheckFilterScript(src string) error {
	fs, err := CompileFilterScript(src)
	if err != nil {
		return err
	}
	c := fs.compiled.Clone()
	ctx, cancel := context.WithTimeout(context.Background(), filterScriptTimeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return fmt.Errorf("filter script: %w", err)
	}
	if !c.IsDefined("match") {
		return errors.New("filter script must assign match")
	}
	return nil
}

// Match runs the script for one target.
func (fs *FilterScript) Match(ctx context.Context, t Target) (bool, error) {
	c := fs.compiled.Clone()
	if err := c.Set("target", t.scriptValue()); err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, filterScriptTimeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return false, err
	}
	return c.Get("match").Bool(), nil
}
