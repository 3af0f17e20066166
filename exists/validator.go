package exists

import (
	"context"
	"fmt"

	"github.com/alexcesaro/statsd"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
)

var stats, _ = statsd.New()

// A Finder runs queries against a single collection.
type Finder interface {
	Find(ctx context.Context, flt *filter.Filter) (*dal.RecordSet, error)
}

// A Resolver locates the collection a reference field points to.  The second return value is false if no
// such collection is known.
type Resolver interface {
	Resolve(name string) (Finder, bool)
}

type ResolverFunc func(name string) (Finder, bool)

func (self ResolverFunc) Resolve(name string) (Finder, bool) {
	return self(name)
}

type FinderFunc func(ctx context.Context, flt *filter.Filter) (*dal.RecordSet, error)

func (self FinderFunc) Find(ctx context.Context, flt *filter.Filter) (*dal.RecordSet, error) {
	return self(ctx, flt)
}

// Returned by existence validators when the referenced collection could not be queried.  This is an
// operational failure, not a validation failure.
type QueryError struct {
	Collection string
	Path       string
	Err        error
}

func (self *QueryError) Error() string {
	return fmt.Sprintf("exists: querying %s for %q failed: %v", self.Collection, self.Path, self.Err)
}

func IsQueryError(err error) bool {
	_, ok := err.(*QueryError)
	return ok
}

// Build the validator for the reference field at path, pointing at the collection named ref.
//
// The validator passes without querying anything if the value holds no identifiers (outside of default
// mode) or if ref cannot be resolved.  Otherwise it passes if the query returns at least one record; the
// identifiers that were not found do not cause a failure.  On success, and if either refresh or default is
// set, the value being validated is replaced with the records that were found.
func NewValidator(path string, ref string, config Config, resolver Resolver) dal.AsyncValidatorFunc {
	config = Normalize(config)

	return func(ctx context.Context, value interface{}, target *dal.FieldTarget) (bool, error) {
		ids, isArray := CandidateIDs(value)

		if !config.Default && len(ids) == 0 {
			return true, nil
		}

		var finder Finder

		if resolver != nil {
			if f, ok := resolver.Resolve(ref); ok && f != nil {
				finder = f
			}
		}

		if finder == nil {
			log.Debugf("exists: %s refers to unknown collection %q, skipping", path, ref)
			return true, nil
		}

		defer stats.NewTiming().Send(`refcheck.exists.query_time`)

		flt := BuildQuery(ids, config)

		if results, err := finder.Find(ctx, flt); err == nil {
			if results.IsEmpty() {
				stats.Increment(`refcheck.exists.fail`)
				log.Debugf("exists: %s: no %s records matched %v", path, ref, flt)
				return false, nil
			}

			if config.Refresh || config.Default {
				if isArray {
					target.Set(results.Maps())
				} else {
					target.Set(results.Records[0].Map())
				}
			}

			stats.Increment(`refcheck.exists.pass`)
			return true, nil
		} else {
			stats.Increment(`refcheck.exists.error`)

			return false, &QueryError{
				Collection: ref,
				Path:       path,
				Err:        err,
			}
		}
	}
}
