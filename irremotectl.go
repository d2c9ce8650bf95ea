package main

import (
	"github.com/sakaisatoru/go_sunshine_face/irremote"
)

var irfunc = map[int32]func(c *faceControl){
	irremote.KeySelect: (*faceControl).toggleVisible,
	irremote.KeyStop:   func(c *faceControl) { c.setVisible(false) },
	irremote.KeyA:      (*faceControl).toggleAmbient,
	irremote.KeyB:      (*faceControl).toggleLowBit,
	irremote.KeyC:      (*faceControl).toggleRound,
	irremote.KeyUp:     (*faceControl).tick,
	irremote.KeyDown:   (*faceControl).tick,
}
