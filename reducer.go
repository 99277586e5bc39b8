package slicebox

type (
	// Reducer folds an Action into the current value of a slice
	Reducer[S any] func(S, Action) S

	// Reducers maps action types to the Reducer that handles them
	Reducers[S any] map[ActionType]Reducer[S]
)

// On returns a Reducer that only sees actions of variant A. Any other
// variant passes the state through
func On[S any, A Action](fn func(S, A) S) Reducer[S] {
	return func(state S, action Action) S {
		a, ok := action.(A)
		if !ok {
			return state
		}
		return fn(state, a)
	}
}

// MakeReducer dispatches each action to the Reducer registered for its type.
// Unregistered types leave the state untouched
func MakeReducer[S any](reducers Reducers[S]) Reducer[S] {
	return func(state S, action Action) S {
		if action == nil {
			return state
		}
		if fn, ok := reducers[action.Type()]; ok {
			return fn(state, action)
		}
		return state
	}
}
