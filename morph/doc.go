// Package morph blends two images through the latent space of a variational
// autoencoder.
//
// Both images are preprocessed and encoded, the latent vectors are linearly
// interpolated, and each intermediate vector is decoded back into an image.
// Decoding runs on a bounded worker pool; results keep interpolation order.
//
// Models is the explicit handle for a loaded encoder/decoder pair. Build it
// once with LoadModels and share it: encoding and decoding never mutate the
// weights, so a single handle serves concurrent pipelines.
package morph
