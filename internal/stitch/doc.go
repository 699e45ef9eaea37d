// Package stitch joins rendered scene clips into the final video: one
// xfade/acrossfade boundary per adjacent pair, then a single-pass encode
// to the fast-start H.264 compatibility profile.
package stitch
