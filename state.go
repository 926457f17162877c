package pollmux

// A State is a [Trigger] that carries a value.
// To retrieve the value, call the Get method.
//
// Calling the Set method updates the value and resumes any task awaiting
// the state.
type State[T any] struct {
	Trigger
	value T
}

// NewState creates a new [State] with its initial value set to v.
func NewState[T any](v T) *State[T] {
	return &State[T]{value: v}
}

// Get retrieves the value of s.
//
// Without proper synchronization, one should only call this method in
// a task function.
func (s *State[T]) Get() T {
	return s.value
}

// Set updates the value of s and resumes any task awaiting s.
//
// One should only call this method in a task function.
func (s *State[T]) Set(v T) {
	s.value = v
	s.Notify()
}

// Update sets the value of s to f(s.Get()) and resumes any task awaiting s.
//
// One should only call this method in a task function.
func (s *State[T]) Update(f func(v T) T) {
	s.Set(f(s.value))
}
