// Package placement defines placed scene objects and the id-keyed store that
// owns them. A placement rests on the floor or on exactly one parent
// placement; chains of stacking are not modelled.
package placement
