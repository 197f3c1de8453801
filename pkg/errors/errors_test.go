package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:           {http.StatusBadRequest, false, "validation failed", true},
		CodeUnauthorized:         {http.StatusUnauthorized, false, "authentication required", false},
		CodeStateConflict:        {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
		CodeIdempotency:          {http.StatusConflict, false, "idempotency key reused", true},
		CodeInternal:             {http.StatusInternalServerError, true, "internal server error", false},
		CodeDependency:           {http.StatusServiceUnavailable, true, "dependency unavailable", true},
		CodeRateLimit:            {http.StatusTooManyRequests, true, "rate limit exceeded", true},
		CodeDuplicateActiveOrder: {http.StatusConflict, false, "customer already has an active order", true},
		CodeInvalidToken:         {http.StatusBadRequest, false, "invalid or expired token", false},
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), string(code))
	}
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeStateConflict, CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency,
		CodeDuplicateEmail, CodeDuplicateActiveOrder, CodeItemNotFound,
		CodeAuthenticationRequired, CodeAccountDisabled, CodeInvalidToken,
	}
	for _, code := range codes {
		_, ok := catalog[code]
		assert.True(t, ok, string(code))
	}
	assert.Len(t, catalog, len(codes))
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", base.Error())

	assert.Same(t, base, base.WithDetails(map[string]any{"field": "foo"}))
	assert.Equal(t, map[string]any{"field": "foo"}, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Nil(t, Wrap(CodeConflict, nil, "ctx").Unwrap())
}

func TestNilError(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("x"))
}

func TestAsAndIsCode(t *testing.T) {
	inner := New(CodeDuplicateActiveOrder, "already active")
	outer := fmt.Errorf("create order: %w", inner)

	assert.Same(t, inner, As(outer))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.True(t, IsCode(outer, CodeDuplicateActiveOrder))
	assert.False(t, IsCode(outer, CodeConflict))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestExposable(t *testing.T) {
	assert.False(t, CodeInternal.Exposable())
	assert.False(t, CodeDependency.Exposable())
	assert.True(t, CodeInvalidToken.Exposable())
	assert.True(t, CodeValidation.Exposable())
	assert.False(t, Code("UNKNOWN").Exposable())
}

func TestDumpCollectsChain(t *testing.T) {
	d := Dump(Wrap(CodeInternal, stdErrors.New("disk full"), "save order"))
	assert.Equal(t, CodeInternal, d.Code)
	assert.Len(t, d.Chain, 2)
	assert.Nil(t, d.Postgres)
	assert.NotContains(t, d.Fields(), "pg_code")
	assert.Equal(t, ErrorDump{}, Dump(nil))
}

func TestDumpExtractsPostgresAndStep(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_customer_active", TableName: "orders"}
	err := Wrap(CodeDuplicateActiveOrder, fmt.Errorf("insert order: %w", pgErr), "customer already has an active order").
		WithDetails(map[string]any{"step": "create_order"})

	d := Dump(err)
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "ux_orders_customer_active", d.Postgres.Constraint)
	assert.Equal(t, "create_order", d.Step)

	fields := d.Fields()
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "create_order", fields["step"])
	assert.Len(t, fields["error_chain"], 3)
}

func TestDumpReadsLibPQErrors(t *testing.T) {
	d := Dump(fmt.Errorf("lookup: %w", &pq.Error{Code: "23503", Table: "sales_order_items", Constraint: "fk_item"}))
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23503", d.Postgres.Code)
	assert.Equal(t, "sales_order_items", d.Postgres.Table)
}
