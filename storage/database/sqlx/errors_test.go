package sqlxrepos

import (
	"database/sql/driver"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/examhall/core"
)

func TestDBErr(t *testing.T) {
	unique := &pq.Error{Code: uniqueViolation, Constraint: "user_external_id_key"}

	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "connection failure", err: &pq.Error{Code: "08006"}, wantShutdown: true},
		{name: "server shutting down", err: &pq.Error{Code: "57P01"}, wantShutdown: true},
		{name: "bad connection", err: driver.ErrBadConn, wantShutdown: true},
		{name: "network error", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, wantShutdown: true},
		{name: "unique violation", err: unique},
		{name: "syntax error", err: &pq.Error{Code: "42601"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dbErr(tt.err, "querying users")
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(err))
			if !tt.wantShutdown {
				assert.Equal(t, tt.err, errors.Cause(err))
			}
		})
	}

	assert.NoError(t, dbErr(nil, "querying users"))
	assert.True(t, isUniqueViolation(dbErr(unique, "inserting user"), "user_external_id_key"))
}
