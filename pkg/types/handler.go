package types

// Handler produces the externally stored data for one datum. A handler is
// constructed once per (resource, handler implementation) pair and reused, so
// it may hold open file handles between calls. Handlers that hold such state
// should also implement io.Closer; the handler cache closes them on eviction.
type Handler interface {
	// Read returns the array-like value addressed by the datum kwargs.
	Read(kwargs Kwargs) (any, error)
}

// HandlerFactory constructs Handlers for one spec family. Name identifies the
// implementation and is used to key and evict cached handler instances.
//
// Factories are compared with == when registered, so implementations must be
// comparable; pointer receivers are the usual choice.
type HandlerFactory interface {
	Name() string
	New(resourcePath string, kwargs Kwargs) (Handler, error)
}

// HandlerConstructor is the function form of HandlerFactory.New.
type HandlerConstructor func(resourcePath string, kwargs Kwargs) (Handler, error)

type funcFactory struct {
	name string
	fn   HandlerConstructor
}

// NewHandlerFactory wraps fn as a HandlerFactory named name. Each call returns
// a distinct factory; two factories built from the same function are not
// equal.
func NewHandlerFactory(name string, fn HandlerConstructor) HandlerFactory {
	return &funcFactory{name: name, fn: fn}
}

func (f *funcFactory) Name() string { return f.name }

func (f *funcFactory) New(resourcePath string, kwargs Kwargs) (Handler, error) {
	return f.fn(resourcePath, kwargs)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(kwargs Kwargs) (any, error)

// Read implements Handler.
func (f HandlerFunc) Read(kwargs Kwargs) (any, error) { return f(kwargs) }
