// Package avatars stores profile pictures in S3-compatible object storage
// under content-addressed keys.
package avatars
