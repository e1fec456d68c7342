// Package keystone provides a dependency injection container built on Go
// generics instead of reflection: constructors are typed closures,
// discovered and wired entirely at compile time.
//
// # Overview
//
// keystone supports three lifetimes (Singleton, Scoped, Transient), named
// and trait (interface) bindings, ordered multi-bindings, decorators,
// disposal, and a synchronous observer hook — without ever inspecting a
// constructor's signature through reflect.
//
// # Basic usage
//
//	c := keystone.NewCollection()
//	keystone.AddSingleton(c, NewLogger)
//	keystone.AddScoped(c, NewUserService)
//
//	provider, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close(context.Background())
//
//	logger, err := keystone.Resolve[*Logger](provider)
//
// # Constructors
//
// A Constructor[T] is a plain function from a Resolver to (T, error):
//
//	func NewUserService(r keystone.Resolver) (*UserService, error) {
//	    db, err := keystone.Resolve[*Database](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &UserService{db: db}, nil
//	}
//
// # Scopes
//
// A Scope is a hierarchical resolution context — typically one per request
// in a server. Scoped services are constructed once per Scope and disposed
// when that Scope closes:
//
//	scope := provider.NewScope(ctx)
//	defer scope.Close(ctx)
//
//	svc, err := keystone.Resolve[*UserService](scope)
//
// # Traits and multi-bindings
//
// A trait is a named capability with no concrete type tying registrations
// together — useful for plugin-style fan-out:
//
//	keystone.AppendMultiTrait[*JSONExporter](c, "exporter", keystone.Singleton, NewJSONExporter)
//	keystone.AppendMultiTrait[*CSVExporter](c, "exporter", keystone.Singleton, NewCSVExporter)
//
//	exporters, err := keystone.ResolveAllTrait[Exporter](provider, "exporter")
package keystone
