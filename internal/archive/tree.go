package archive

import (
	"context"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
)

// treeWriter applies one operation to every object of a tree, committing a
// transaction every batchSize objects.
type treeWriter struct {
	a       *Archive
	op      string
	pending int
	inTx    bool
	total   int
	failed  int
	errs    []error

	// batch holds the objects applied successfully in the open transaction.
	batch []schema.Object
	// undo reverts the in-memory effects of fn for an object whose
	// transaction was rolled back.
	undo func(schema.Object)
}

func (w *treeWriter) begin(ctx context.Context) {
	if w.a.batchSize <= 0 || w.inTx {
		return
	}
	if err := w.a.driver.Start(ctx); err != nil {
		w.a.logger.Warn("batch transaction not started", "op", w.op, "error", err)
		return
	}
	w.inTx = true
}

func (w *treeWriter) commit() {
	if !w.inTx {
		return
	}
	w.inTx = false
	batch := w.batch
	w.batch = nil
	w.pending = 0

	if err := w.a.driver.Commit(); err != nil {
		if rbErr := w.a.driver.Rollback(); rbErr != nil {
			w.a.logger.Warn("batch rollback failed", "op", w.op, "error", rbErr)
		}
		w.a.logger.Warn("batch rolled back", "op", w.op, "objects", len(batch), "error", err)
		for _, obj := range batch {
			w.undo(obj)
		}
		w.failed += len(batch)
		w.errs = append(w.errs, &Error{Code: ErrCodeDriver, Op: w.op, Err: err})
		return
	}
	w.a.logger.Debug("batch committed", "op", w.op, "objects", len(batch), "total", w.total)
}

// apply runs fn on obj within the current batch.
func (w *treeWriter) apply(ctx context.Context, obj schema.Object, fn func() error) {
	w.begin(ctx)
	w.total++
	w.pending++
	if err := fn(); err != nil {
		w.a.logger.Warn("tree object failed", "op", w.op, "type", obj.Type().Name(),
			"public_id", publicIDOf(obj), "error", err)
		w.failed++
		w.errs = append(w.errs, err)
	} else if w.inTx {
		w.batch = append(w.batch, obj)
	}
	if w.a.batchSize > 0 && w.pending >= w.a.batchSize {
		w.commit()
	}
}

func (w *treeWriter) finish() (int, error) {
	w.commit()
	if len(w.errs) == 0 {
		return w.total, nil
	}
	return w.total, &TreeError{Op: w.op, Failed: w.failed, Total: w.total, Errs: w.errs}
}

// AddTree writes obj and all objects it owns, parents before children. Only
// obj itself is linked through parentID; descendants use their in-memory
// parent. Failing objects are counted and skipped.
//
// It returns the number of objects processed. The error is a *TreeError when
// any object failed.
func (a *Archive) AddTree(ctx context.Context, obj schema.Object, parentID string) (n int, err error) {
	start := time.Now()
	defer func() { observe("add_tree", start, err) }()

	w := &treeWriter{a: a, op: "add tree", undo: a.forgetWritten}
	schema.Walk(obj, func(o schema.Object) bool {
		pid := ""
		if o == obj {
			pid = parentID
		}
		w.apply(ctx, o, func() error { return a.Write(ctx, o, pid) })
		return true
	})
	return w.finish()
}

// RemoveTree removes obj and all objects it owns, children before parents.
//
// It returns the number of objects processed. The error is a *TreeError when
// any object failed.
func (a *Archive) RemoveTree(ctx context.Context, obj schema.Object, parentID string) (n int, err error) {
	start := time.Now()
	defer func() { observe("remove_tree", start, err) }()

	w := &treeWriter{a: a, op: "remove tree", undo: a.restoreRemoved}
	schema.WalkChildrenFirst(obj, func(o schema.Object) {
		pid := ""
		if o == obj {
			pid = parentID
		}
		w.apply(ctx, o, func() error { return a.Remove(ctx, o, pid) })
	})
	return w.finish()
}

// forgetWritten drops the identifier of an object whose insert was rolled
// back.
func (a *Archive) forgetWritten(obj schema.Object) {
	a.cache.evict(obj)
	if po, ok := obj.(schema.PublicObject); ok && a.objects != nil {
		a.objects.Unregister(po)
	}
}

// restoreRemoved registers a public object again whose removal was rolled
// back. Its identifier is resolved again on next use.
func (a *Archive) restoreRemoved(obj schema.Object) {
	if po, ok := obj.(schema.PublicObject); ok && a.objects != nil {
		if err := a.objects.Register(po); err != nil {
			a.logger.Debug("public object not registered", "public_id", po.PublicID(), "error", err)
		}
	}
}
