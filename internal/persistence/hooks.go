// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package persistence

import (
	"context"
	"time"

	"github.com/clusterwatch/sentryd/internal/logging"
)

type sqlQueryTimerKey struct{}

// queryHooks logs every query sqlitestore runs through sqlhooks and the
// elapsed time it took, the same before/after timestamp pairing the
// teacher's own database hooks use.
type queryHooks struct{}

func (queryHooks) Before(ctx context.Context, query string, args ...any) (context.Context, error) {
	logging.Debugf("persistence: query %s %q", query, args)
	return context.WithValue(ctx, sqlQueryTimerKey{}, time.Now()), nil
}

func (queryHooks) After(ctx context.Context, query string, args ...any) (context.Context, error) {
	if begin, ok := ctx.Value(sqlQueryTimerKey{}).(time.Time); ok {
		logging.Debugf("persistence: query took %s", time.Since(begin))
	}
	return ctx, nil
}
