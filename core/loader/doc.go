// Package loader provides the plugin-like feature loading system.
//
// It allows the application to register and initialize features (modules)
// dynamically. Each feature implements the Feature interface, which defines its
// lifecycle hooks and route registration logic. Features running background
// tasks additionally implement Stopper so graceful shutdown can reach them.
//
// This architecture promotes modularity, allowing features like 'inventory' or
// 'thumbnail' to be developed and tested in isolation.
package loader
