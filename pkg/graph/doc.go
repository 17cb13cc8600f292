// Package graph defines the shading and scene node graphs that the exporter
// compiles. A Tree is an ordered set of typed nodes whose sockets are wired
// by links; group nodes embed another Tree, giving the graph lexical scopes.
package graph
