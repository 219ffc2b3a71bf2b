package platform

import (
	"io"
	"log/slog"

	"github.com/moshango/Contract-review-sub001/pkg/adapters/fs"
	"github.com/moshango/Contract-review-sub001/pkg/annotate"
	"github.com/moshango/Contract-review-sub001/pkg/payload"
	"github.com/moshango/Contract-review-sub001/pkg/review"
	"github.com/moshango/Contract-review-sub001/pkg/store"
)

// New assembles a review service. Rules are read lazily, so New succeeds
// even when no rule file exists yet.
//
//	svc, err := contractreview.New(contractreview.WithRulesRoot("./config"))
func New(opts ...Option) (*review.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	src := o.source
	if src == nil {
		src = fs.NewFileSource(fs.Config{
			Path:          o.rulesPath,
			Root:          o.rulesRoot,
			Candidates:    o.candidates,
			Sheet:         o.sheet,
			Logger:        o.logger,
			ErrorHandler:  o.errorHandler,
			WatchDebounce: o.debounce,
		})
	}

	storeOpts := []store.Option{store.WithLogger(o.logger)}
	if o.events != nil {
		storeOpts = append(storeOpts, store.WithEvents(o.events))
	}
	st := store.New(src, storeOpts...)

	validator := payload.New(o.logger)
	validator.Lenient = o.lenient

	annotator := annotate.New(
		annotate.WithLogger(o.logger),
		annotate.WithOptions(o.annotate),
	)

	o.logger.Debug("review service assembled",
		"source", src.Name(),
		"author", o.annotate.Author,
		"lenient", o.lenient,
	)

	return review.NewService(src, st,
		review.WithLogger(o.logger),
		review.WithValidator(validator),
		review.WithAnnotator(annotator),
	), nil
}
