package viewport

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/logger"
)

// importResult is what an import goroutine hands back to the host loop.
type importResult struct {
	load *Load
	node *scene.Node
	err  error
}

// loadController owns the load-and-replace protocol. The generation counter
// is the only staleness check: a result whose generation is not current when
// it reaches the host loop never touches the scene.
type loadController struct {
	session  *Session
	importer Importer
	sem      *semaphore.Weighted
	log      *zap.Logger

	generation uint64
	cancel     context.CancelFunc
	pending    map[uint64]*Load

	// inflight tracks import goroutines so tests and shutdown can wait.
	inflight sync.WaitGroup
}

func newLoadController(s *Session, imp Importer, maxConcurrent int64, log *zap.Logger) *loadController {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &loadController{
		session:  s,
		importer: imp,
		sem:      semaphore.NewWeighted(maxConcurrent),
		log:      log,
		pending:  make(map[uint64]*Load),
	}
}

// load issues a new current generation and starts importing src on its own
// goroutine. Earlier in-flight imports lose by generation mismatch; their
// contexts are cancelled so cooperative importers can stop early.
func (lc *loadController) load(src Source) *Load {
	lc.generation++
	gen := lc.generation

	if lc.cancel != nil {
		lc.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.cancel = cancel

	ld := newLoad(gen, src.Name)
	lc.pending[gen] = ld

	lc.log.Debug("load started",
		logger.Generation(gen),
		logger.Model(src.Name),
	)

	host := lc.session.host
	lc.inflight.Add(1)
	go func() {
		defer lc.inflight.Done()
		defer cancel()
		node, err := lc.run(ctx, src)
		host.Dispatch(func() {
			lc.complete(importResult{load: ld, node: node, err: err})
		})
	}()
	return ld
}

// run performs the import under the worker semaphore.
func (lc *loadController) run(ctx context.Context, src Source) (*scene.Node, error) {
	if closer, ok := src.Reader.(io.Closer); ok {
		defer closer.Close()
	}
	if src.Reader == nil {
		return nil, errors.New("no data")
	}
	if err := lc.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer lc.sem.Release(1)

	node, err := lc.importer.Import(ctx, src.Name, src.Reader)
	if err != nil {
		return node, err
	}
	if node == nil {
		return nil, errors.New("importer returned no scene")
	}
	return node, nil
}

// complete runs on the host loop.
func (lc *loadController) complete(res importResult) {
	ld := res.load
	delete(lc.pending, ld.Generation)

	if ld.Generation != lc.generation {
		// Never attached, so nothing else references it.
		stats := Reclaim(res.node, lc.session.surface)
		ld.resolve(OutcomeSuperseded, nil, camera.Framing{})
		lc.log.Debug("discarded stale load",
			logger.Generation(ld.Generation),
			zap.Uint64("current", lc.generation),
			logger.Model(ld.Name),
			zap.Int("geometries", stats.Geometries),
			zap.Error(res.err),
		)
		return
	}
	lc.cancel = nil

	if res.err != nil {
		Reclaim(res.node, lc.session.surface)
		ierr := &ImportError{Name: ld.Name, Err: res.err}
		lc.log.Warn("load failed",
			logger.Generation(ld.Generation),
			zap.Error(ierr),
		)
		lc.session.setStatus(Status{Loading: false, Error: ierr.Error()})
		ld.resolve(OutcomeFailed, ierr, camera.Framing{})
		return
	}

	framing := lc.session.commit(res.node)
	lc.log.Info("model loaded",
		logger.Generation(ld.Generation),
		logger.Model(ld.Name),
		zap.Float32("distance", framing.Distance),
	)
	lc.session.setStatus(Status{Loading: false})
	ld.resolve(OutcomeLoaded, nil, framing)
}

// shutdown moves the generation past every issued id, cancels the current
// import and resolves all pending futures as superseded. Their goroutines
// still report back later and have their results reclaimed.
func (lc *loadController) shutdown() {
	lc.generation++
	if lc.cancel != nil {
		lc.cancel()
		lc.cancel = nil
	}
	for gen, ld := range lc.pending {
		ld.resolve(OutcomeSuperseded, nil, camera.Framing{})
		delete(lc.pending, gen)
	}
}

// busy reports whether the current generation is still importing.
func (lc *loadController) busy() bool {
	_, ok := lc.pending[lc.generation]
	return ok
}
