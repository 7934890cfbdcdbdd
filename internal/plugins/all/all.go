// Package all links every reference content plugin into the binary.
package all

import (
	_ "inkdisplay/internal/plugins/daylight"
	_ "inkdisplay/internal/plugins/imagefolder"
	_ "inkdisplay/internal/plugins/imageurl"
	_ "inkdisplay/internal/plugins/webpage"
	_ "inkdisplay/internal/plugins/yearprogress"
)
