package pool

import (
	"context"

	"github.com/letya999/support-rag-sub001/pkg/llm"
)

// Pool bounds concurrent model-inference calls so blocking inference cannot
// starve the scheduler serving I/O-bound work. It implements LLMProvider
// and wraps another provider.
type Pool struct {
	inner llm.LLMProvider
	slots chan struct{}
}

// Wrap bounds inner to size concurrent calls.
func Wrap(inner llm.LLMProvider, size int) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{
		inner: inner,
		slots: make(chan struct{}, size),
	}
}

var _ llm.LLMProvider = (*Pool)(nil)

func (p *Pool) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return p.inner.Chat(ctx, history, opts...)
}

func (p *Pool) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return p.inner.Generate(ctx, prompt, opts...)
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() {
	<-p.slots
}
