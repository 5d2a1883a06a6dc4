package reflection

import "reflect"

// ObjectFactory builds result-object instances; the configuration can swap
// it (the `<objectFactory>` plugin point) to intern, pool, or pre-populate
// instances.
type ObjectFactory interface {
	// Create returns a pointer to a new instance of t.
	Create(t reflect.Type) any
}

// DefaultObjectFactory constructs zero values via reflect.New.
type DefaultObjectFactory struct{}

func (DefaultObjectFactory) Create(t reflect.Type) any {
	return reflect.New(t).Interface()
}

// ObjectWrapperFactory builds the Navigator the runtime uses for property
// access on parameter and result objects (the `<objectWrapperFactory>`
// plugin point).
type ObjectWrapperFactory interface {
	Wrap(meta *MetaCache) *Navigator
}

// DefaultObjectWrapperFactory yields the standard path-navigating wrapper.
type DefaultObjectWrapperFactory struct{}

func (DefaultObjectWrapperFactory) Wrap(meta *MetaCache) *Navigator {
	return NewNavigator(meta)
}

// ReflectorFactory supplies the type-metadata cache (the
// `<reflectorFactory>` plugin point); swapping it controls how descriptors
// are derived and memoised.
type ReflectorFactory interface {
	Reflector() *MetaCache
}

// DefaultReflectorFactory hands out one shared MetaCache.
type DefaultReflectorFactory struct {
	cache *MetaCache
}

func NewDefaultReflectorFactory() *DefaultReflectorFactory {
	return &DefaultReflectorFactory{cache: NewMetaCache()}
}

func (f *DefaultReflectorFactory) Reflector() *MetaCache { return f.cache }
