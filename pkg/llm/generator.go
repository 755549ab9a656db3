// Package llm defines the language-model boundary the plan compiler consumes.
//
// The compiler needs exactly one capability: hand the model a prompt, get the
// raw completion text back. Keeping the interface this small lets tests swap
// in fixed-response generators and keeps provider packages free of planning
// concerns.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/entrhq/webpilot/pkg/llm/openai"
//	)
//
//	func main() {
//	    gen, err := openai.NewGenerator("", openai.WithModel("gpt-4o"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    out, err := gen.Generate(context.Background(), llm.Prompt{
//	        System: "You are a planner.",
//	        User:   "open youtube",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(out)
//	}
package llm

import "context"

// Prompt is a two-part completion request. System carries the planning
// contract and site context; User carries the instruction being compiled.
type Prompt struct {
	System string
	User   string
}

// Generator produces a completion for a prompt. Implementations must not
// retry internally: the caller decides what a backend failure means.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface, the same
// way net/http adapts handlers. Tests use it for fixed-response backends.
type GeneratorFunc func(ctx context.Context, prompt Prompt) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
