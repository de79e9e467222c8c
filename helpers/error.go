package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors joins non-nil errors into one, nil if there are none.
// Single error is returned as is to keep its juju type (NotValid, NotFound).
func FoldErrors(errs []error) error {
	nonNil := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	ss := make([]string, len(nonNil))
	for i, e := range nonNil {
		ss[i] = e.Error()
	}
	return errors.New(strings.Join(ss, "\n"))
}
