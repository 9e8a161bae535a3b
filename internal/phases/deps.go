package phases

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/config"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// Deps holds everything the handlers need. Collaborator slots must be
// non-nil; wire collab.Unconfigured{} for services without an endpoint.
type Deps struct {
	AI       collab.Completer
	CMS      collab.CMS
	Design   collab.DesignSource
	Browser  collab.Browser
	Head     collab.HeadChecker
	Cfg      config.PipelineConfig
	AITokens int
	Dialects map[string]Dialect
	Logger   *zap.Logger
}

// Validate checks that every slot is wired.
func (d *Deps) Validate() error {
	if d.AI == nil {
		return errors.New("AI completer is required")
	}
	if d.CMS == nil {
		return errors.New("CMS client is required")
	}
	if d.Design == nil {
		return errors.New("design source is required")
	}
	if d.Browser == nil {
		return errors.New("browser is required")
	}
	if d.Head == nil {
		return errors.New("head checker is required")
	}
	if len(d.Dialects) == 0 {
		return errors.New("at least one dialect is required")
	}
	return nil
}

// RegisterAll wires every build and content pipeline handler into the
// registry. The set is closed: a phase without a handler here is a
// misconfigured pipeline.
func RegisterAll(r *pipeline.Registry, deps *Deps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if err := deps.Validate(); err != nil {
		return fmt.Errorf("invalid handler deps: %w", err)
	}

	handlers := []pipeline.Handler{
		&Preflight{deps: deps},
		&Analysis{deps: deps},
		&Classification{deps: deps},
		&Generation{deps: deps},
		&Validation{deps: deps},
		&Deploy{deps: deps},
		&Assets{deps: deps},
		&VisualCompare{deps: deps},
		&FixLoop{deps: deps},
		&FunctionalQA{deps: deps},
		&SEO{deps: deps},
		&Report{deps: deps},
		&Publish{deps: deps},

		&Outline{deps: deps},
		&Draft{deps: deps},
		&ContentSEO{deps: deps},
		&ContentPublish{deps: deps},
		&ContentReport{deps: deps},
	}

	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return fmt.Errorf("failed to register %s: %w", h.Name(), err)
		}
	}
	return nil
}
