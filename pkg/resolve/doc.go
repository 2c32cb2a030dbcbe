// Package resolve turns registry metadata into the two decisions the
// bundling pipeline makes before touching the network again:
//
//   - [FindVersion]: which concrete version a tag or range names
//   - [Classify]: which of that version's dependencies are installed and
//     bundled, and which are left for the host to provide at runtime
//
// Both are pure functions of their inputs.
package resolve
