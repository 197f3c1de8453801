package db

// SQLiteIndexes are the partial and expression indexes AutoMigrate cannot
// express. They mirror the goose migrations.
var SQLiteIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_customer_active ON orders(customer_id) WHERE docstatus < 2`,
}
