package asset

// AssetsBuilderOption is a functional option for configuring an Assets store during construction.
type AssetsBuilderOption[T any] func(*assets[T])

// WithFirstID sets the id assigned to the first stored asset. Ids still increase by one per Add.
// A rebuilt store started at a different id models the id instability that paths guard against.
//
// Parameters:
//   - id: the first id to hand out (0 is treated as 1, since 0 is the empty handle)
//
// Returns:
//   - AssetsBuilderOption[T]: a function that applies the first id option
func WithFirstID[T any](id ID) AssetsBuilderOption[T] {
	return func(a *assets[T]) {
		if id == 0 {
			id = 1
		}
		a.nextID = id
	}
}
