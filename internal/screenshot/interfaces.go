package screenshot

import (
	"context"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/client"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/ocr"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pubsub"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/watcher"
)

// FileWatcher detects filesystem events in one directory.
type FileWatcher interface {
	// Watch starts monitoring dir. The channel is closed when monitoring ends.
	Watch(ctx context.Context, dir string) (<-chan watcher.FileEvent, error)
	// Stop stops the file watcher.
	Stop() error
}

// Waiter delays a task before the file is read.
type Waiter interface {
	Wait(ctx context.Context, path string) error
}

// Extractor turns an image into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*ocr.Result, error)
}

// Explainer asks the language model to explain extracted text. prompt is
// optional extra context from the user.
type Explainer interface {
	Explain(ctx context.Context, text, prompt string) (*client.Explanation, error)
}

// Publisher delivers results to subscribers and reports how many received it.
type Publisher interface {
	Publish(ev pubsub.Event) int
}
