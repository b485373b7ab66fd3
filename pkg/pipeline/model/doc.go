// Package model provides the data structures shared by the pipeline package and its hooks.
// It defines the node discriminant, the static description of every node of a composed graph,
// and the hook interface that observers such as the drawer or the measure implement.
package model
