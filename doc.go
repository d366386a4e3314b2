// Command hotseats morphs one image into another through the latent space of
// a convolutional variational autoencoder.
//
//	hotseats weights fetch
//	hotseats morph chair-a.jpg chair-b.png --steps 10 --format gif
//
// Settings come from ~/.config/hotseats/config.toml (see "hotseats config init").
package main
