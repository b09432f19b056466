// Package constrain holds the candidate filters that run before and after
// collision testing: grid snapping and clamping into the venue volume.
package constrain
