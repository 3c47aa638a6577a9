// Decode AX.25 frames from .WAV recordings, much faster than real time.
package main

import (
	direwolf "github.com/doismellburning/samoyed-rx/src"
)

func main() {
	direwolf.AtestMain()
}
