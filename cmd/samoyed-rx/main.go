// Receive AX.25 frames from the sound card.
package main

import (
	direwolf "github.com/doismellburning/samoyed-rx/src"
)

func main() {
	direwolf.RxMain()
}
