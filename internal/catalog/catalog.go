// Package catalog reads product catalogs in the seed file format: a JSON
// array of objects with id, name, category, price and stock_quantity.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Parse decodes a catalog. Prices may be JSON strings or numbers. Unknown
// fields are ignored so richer exports can be fed in unchanged.
func Parse(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := parseProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(out)+1)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return out, nil
}

func parseProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "stock_quantity":
			p.StockQuantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return p, err
	}

	switch {
	case p.ID == "":
		return p, errors.New("missing id")
	case p.Price.IsNegative():
		return p, errors.Errorf("%s: negative price", p.ID)
	case p.StockQuantity < 0:
		return p, errors.Errorf("%s: negative stock", p.ID)
	}
	return p, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "price")
	}
	return v, nil
}
