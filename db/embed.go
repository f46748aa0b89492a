// Package db provides the embedded storefront schema and default catalog.
package db

import _ "embed"

// Schema contains the idempotent DDL for products, orders, order items and
// API keys.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the default catalog in the seed file format.
//
//go:embed seed/products.json
var Products []byte
