// Package cache provides a generic insert-if-absent cache for GPU objects
// that are expensive to build and live as long as their owner.
//
//	c := cache.New[device.TargetFormat, device.Pipeline]()
//	p, err := c.GetOrCreate(format, func() (device.Pipeline, error) {
//	    return dev.CreatePipeline(program, desc)
//	})
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
