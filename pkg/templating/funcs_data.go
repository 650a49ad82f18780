package templating

import (
	"fmt"
	"reflect"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/shopspring/decimal"
)

// repeat returns a slice of integers from 0 to count-1, capped by MaxRepeat.
func (tm *TemplateManager) repeat(count int) ([]int, error) {
	if limit := tm.config.MaxRepeat; limit > 0 && count > limit {
		return nil, fmt.Errorf("%w: repeat count %d is over %d", ErrLimitExceeded, count, limit)
	}
	if count < 0 {
		return []int{}, nil
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s, nil
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}

// sum adds numbers exactly. A single slice argument is summed element-wise,
// so both {{sum 1 2 3}} and {{sum .Amounts}} work.
func sum(values ...any) (decimal.Decimal, error) {
	if len(values) == 1 {
		if v := reflect.ValueOf(values[0]); v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			values = make([]any, v.Len())
			for i := range values {
				values[i] = v.Index(i).Interface()
			}
		}
	}
	total := decimal.Zero
	for _, v := range values {
		d, err := fieldfmt.Decimal(v)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, nil
}

// add returns a + b as an exact decimal.
func add(a, b any) (decimal.Decimal, error) {
	return arith(a, b, decimal.Decimal.Add)
}

// sub returns a - b as an exact decimal.
func sub(a, b any) (decimal.Decimal, error) {
	return arith(a, b, decimal.Decimal.Sub)
}

// mul returns a * b as an exact decimal.
func mul(a, b any) (decimal.Decimal, error) {
	return arith(a, b, decimal.Decimal.Mul)
}

func arith(a, b any, op func(decimal.Decimal, decimal.Decimal) decimal.Decimal) (decimal.Decimal, error) {
	x, err := fieldfmt.Decimal(a)
	if err != nil {
		return decimal.Zero, err
	}
	y, err := fieldfmt.Decimal(b)
	if err != nil {
		return decimal.Zero, err
	}
	return op(x, y), nil
}
