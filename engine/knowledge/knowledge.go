// Package knowledge maintains the Neo4j graph of devices, observed damages
// and the parts and tools their repairs needed. The diagnosis pipeline reads
// it back as prompt context.
package knowledge

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherResult is the minimal read surface of a neo4j result.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// CypherRunner runs one cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the minimal session surface the store needs.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener yields sessions; tests substitute a fake.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// GraphStore provides graph operations for repair knowledge.
type GraphStore struct {
	opener SessionOpener
}

// New creates a GraphStore over a live driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{opener: driverOpener{driver: driver}}
}

// NewWithOpener creates a GraphStore with a custom session opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return sessionAdapter{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := a.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return resultAdapter{res: res}, nil
}

func (a sessionAdapter) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return a.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(txAdapter{tx: tx})
	})
}

func (a sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

type txAdapter struct {
	tx neo4j.ManagedTransaction
}

func (a txAdapter) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := a.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return resultAdapter{res: res}, nil
}

type resultAdapter struct {
	res neo4j.ResultWithContext
}

func (a resultAdapter) Next(ctx context.Context) bool { return a.res.Next(ctx) }
func (a resultAdapter) Record() *neo4j.Record         { return a.res.Record() }
func (a resultAdapter) Err() error                    { return a.res.Err() }
