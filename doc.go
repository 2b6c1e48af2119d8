/*
Package haarface locates faces in raster images with a Haar feature cascade classifier.

The detector builds the integral images of the source, slides the classifier window over
the image at increasing scales, optionally discarding windows with too few or too many
edges, and clusters the accepted windows into averaged face rectangles.

The package provides a command line interface, supporting various flags for the detection settings.
To check the supported commands type:

	$ haarface --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/esimov/haarface"
	)

	func main() {
		cascade, err := haarface.LoadCascadeFile("haarcascade_frontalface_alt.xml")
		if err != nil {
			log.Fatal(err)
		}

		faces, err := haarface.Detect(context.Background(), "photo.jpg", cascade, haarface.DefaultConfig())
		if err != nil {
			fmt.Printf("Error detecting faces: %s", err.Error())
		}
		fmt.Println(faces)
	}
*/
package haarface
