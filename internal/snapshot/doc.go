// Package snapshot retrieves JPEG frames from a remote camera.
//
// A fetch asks the device to capture a frame, reads the 4-byte little-endian
// payload size it answers with, and then pulls the payload into a freshly
// allocated buffer using one of two strategies: Cutthrough streams the whole
// payload as one raw read, Chunked requests fixed-size windows with a bounded
// number of attempts per window. A buffer leaves the package only when every
// byte of it was written.
package snapshot
