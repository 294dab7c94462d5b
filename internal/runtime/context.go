// Package runtime provides application runtime context for Traincue.
package runtime

import (
	"os"

	"github.com/coachkit/traincue/internal/config"
	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/notify"
	"github.com/coachkit/traincue/internal/output"
	"github.com/coachkit/traincue/internal/sink"
	"github.com/coachkit/traincue/internal/source"
	"github.com/coachkit/traincue/internal/storage"
)

// Context holds the application runtime context: the database, the
// repositories over it, and the scheduling engine wired to the local sink
// and the storage-backed reminder source.
type Context struct {
	DB        *storage.DB
	Formatter *output.Formatter

	// Repositories
	ActivityRepo *storage.ActivityRepo
	TaskRepo     *storage.TaskRepo
	WebhookRepo  *storage.WebhookRepo
	EntryStore   *storage.EntryStore

	// Scheduling
	Sink       *sink.Local
	Source     *source.Store
	Engine     *engine.Engine
	Dispatcher *notify.Dispatcher

	// Debug mode
	Debug bool
}

// Options configures the runtime context.
type Options struct {
	DBPath    string
	InMemory  bool
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		DBPath:    storage.DefaultPath(),
		InMemory:  false,
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
		Debug:     false,
	}
}

// New creates a new runtime context.
func New(opts Options) (*Context, error) {
	// Environment variable override, ":memory:" selects in-memory mode.
	if envPath := os.Getenv("TRAINCUE_DATABASE"); envPath != "" {
		if envPath == ":memory:" {
			opts.InMemory = true
		} else {
			opts.DBPath = envPath
		}
	}

	db, err := storage.Open(storage.Options{
		Path:     opts.DBPath,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, err
	}

	activityRepo := storage.NewActivityRepo(db)
	taskRepo := storage.NewTaskRepo(db)
	webhookRepo := storage.NewWebhookRepo(db)
	entryStore := storage.NewEntryStore(db)

	localSink := sink.New(db, webhookRepo, config.Global.Sink)
	reminderSource := source.New(taskRepo, activityRepo)
	eng := engine.New(localSink, reminderSource, entryStore, config.Global.Scheduler)

	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	return &Context{
		DB:           db,
		Formatter:    formatter,
		ActivityRepo: activityRepo,
		TaskRepo:     taskRepo,
		WebhookRepo:  webhookRepo,
		EntryStore:   entryStore,
		Sink:         localSink,
		Source:       reminderSource,
		Engine:       eng,
		Dispatcher:   notify.NewDispatcher(webhookRepo),
		Debug:        opts.Debug,
	}, nil
}

// Close closes the runtime context.
func (c *Context) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...interface{}) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
