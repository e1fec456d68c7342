package keystone

import "fmt"

// ModuleBuilder is one registration step within a Module.
type ModuleBuilder func(*Collection) error

// ModuleError wraps a failure raised while applying a named Module.
type ModuleError struct {
	Module string
	Cause  error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("keystone: module %q: %v", e.Module, e.Cause)
}

func (e *ModuleError) Unwrap() error { return e.Cause }

// Module groups related registrations under a name, for both readability
// and error attribution: a failure from any builder is reported with the
// module's name attached.
//
// Example:
//
//	var DatabaseModule = keystone.Module("database",
//	    func(c *keystone.Collection) error { return keystone.AddSingleton(c, NewConnection) },
//	    func(c *keystone.Collection) error { return keystone.AddScoped(c, NewUserRepository) },
//	)
//
//	var AppModule = keystone.Module("app",
//	    keystone.AddModule(DatabaseModule),
//	    func(c *keystone.Collection) error { return keystone.AddScoped(c, NewAppService) },
//	)
func Module(name string, builders ...ModuleBuilder) ModuleBuilder {
	return func(c *Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}
			if err := builder(c); err != nil {
				return &ModuleError{Module: name, Cause: err}
			}
		}
		return nil
	}
}

// AddModule folds another module's builders into the current one.
func AddModule(module ModuleBuilder) ModuleBuilder {
	return func(c *Collection) error {
		if module == nil {
			return nil
		}
		return module(c)
	}
}

// Apply runs a ModuleBuilder against the Collection.
func (c *Collection) Apply(m ModuleBuilder) error {
	if m == nil {
		return nil
	}
	return m(c)
}
