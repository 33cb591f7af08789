package xcontext

import (
	"context"
	"net/http"
	"time"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/pkg/logger"
	"github.com/kizuna-social/backend/pkg/session"
	"github.com/kizuna-social/backend/pkg/token"
	"gorm.io/gorm"
)

type (
	configsKey      struct{}
	loggerKey       struct{}
	dbKey           struct{}
	dbTxKey         struct{}
	tokenEngineKey  struct{}
	httpClientKey   struct{}
	sessionStoreKey struct{}
	httpRequestKey  struct{}
	httpWriterKey   struct{}
	startTimeKey    struct{}
)

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg, _ := ctx.Value(configsKey{}).(config.Configs)
	return cfg
}

func WithLogger(ctx context.Context, logger logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func Logger(ctx context.Context) logger.Logger {
	l, ok := ctx.Value(loggerKey{}).(logger.Logger)
	if !ok {
		return logger.NewLogger(logger.INFO)
	}
	return l
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the database bound to ctx. Inside a transaction it returns the transaction.
func DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(dbTxKey{}).(*transaction); ok && tx.db != nil {
		return tx.db.WithContext(ctx)
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return nil
	}
	return db.WithContext(ctx)
}

type transaction struct {
	db   *gorm.DB
	done bool
}

// WithDBTransaction begins a transaction which is used by DB(ctx) until it is committed or
// rolled back. A transaction started inside another one joins the outer transaction.
func WithDBTransaction(ctx context.Context) context.Context {
	if tx, ok := ctx.Value(dbTxKey{}).(*transaction); ok && !tx.done {
		return context.WithValue(ctx, dbTxKey{}, &transaction{db: tx.db, done: true})
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return ctx
	}

	return context.WithValue(ctx, dbTxKey{}, &transaction{db: db.Begin()})
}

func WithCommitDBTransaction(ctx context.Context) error {
	tx, ok := ctx.Value(dbTxKey{}).(*transaction)
	if !ok || tx.done {
		return nil
	}

	tx.done = true
	return tx.db.Commit().Error
}

func WithRollbackDBTransaction(ctx context.Context) {
	tx, ok := ctx.Value(dbTxKey{}).(*transaction)
	if !ok || tx.done {
		return
	}

	tx.done = true
	tx.db.Rollback()
}

func WithTokenEngine(ctx context.Context, engine token.Engine) context.Context {
	return context.WithValue(ctx, tokenEngineKey{}, engine)
}

func TokenEngine(ctx context.Context) token.Engine {
	engine, _ := ctx.Value(tokenEngineKey{}).(token.Engine)
	return engine
}

func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, httpClientKey{}, client)
}

func HTTPClient(ctx context.Context) *http.Client {
	client, ok := ctx.Value(httpClientKey{}).(*http.Client)
	if !ok {
		return http.DefaultClient
	}
	return client
}

func WithSessionStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, sessionStoreKey{}, store)
}

func SessionStore(ctx context.Context) *session.Store {
	store, _ := ctx.Value(sessionStoreKey{}).(*session.Store)
	return store
}

func WithHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

func HTTPRequest(ctx context.Context) *http.Request {
	req, _ := ctx.Value(httpRequestKey{}).(*http.Request)
	return req
}

func WithHTTPWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, httpWriterKey{}, w)
}

func HTTPWriter(ctx context.Context) http.ResponseWriter {
	w, _ := ctx.Value(httpWriterKey{}).(http.ResponseWriter)
	return w
}

func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func StartTime(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}
