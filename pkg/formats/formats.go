// Package formats reads the Ragnarok Online files a scene export needs:
// RSM models, RSW worlds and GND grounds.
package formats
