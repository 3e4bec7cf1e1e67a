// Package modules contains the self-contained application features.
//
// Each subdirectory is a module implementing module.Module. The server lists
// them in AppModules and boots them into the signed-in /app route group.
package modules
