// pkg/registry/registry_property_test.go
package registry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for any id and any number of completion attempts, at most one succeeds.
func TestRegistry_CompleteSucceedsAtMostOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Complete returns true at most once per id", prop.ForAll(
		func(id int64, values []string) bool {
			r := New[string]()
			if _, err := r.Register(id); err != nil {
				return false
			}

			successes := 0
			for _, v := range values {
				if r.Complete(id, v) {
					successes++
				}
			}
			if len(values) == 0 {
				return successes == 0
			}
			return successes == 1
		},
		gen.Int64(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("Complete after Remove never succeeds", prop.ForAll(
		func(id int64, value string) bool {
			r := New[string]()
			if _, err := r.Register(id); err != nil {
				return false
			}
			r.Remove(id)
			return !r.Complete(id, value) && r.Len() == 0
		},
		gen.Int64(),
		gen.AlphaString(),
	))

	properties.Property("Registering a live id twice fails", prop.ForAll(
		func(id int64) bool {
			r := New[string]()
			if _, err := r.Register(id); err != nil {
				return false
			}
			_, err := r.Register(id)
			return err != nil
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
