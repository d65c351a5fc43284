package programs

import (
	"encoding/binary"
	"strconv"
	"strings"

	"tinyos/pkg/abi"
	"tinyos/pkg/ulib"
)

const (
	screenCols = 80
	attribute  = 0x07
)

// frameLimit reads an optional frame count argument. Zero means forever.
func frameLimit(lib *ulib.Lib) int {
	args, ret := lib.GetArgs(abi.ArgsLength + 1)
	if ret != 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func openRTC(lib *ulib.Lib, hz uint32) int32 {
	fd := lib.Open(RTCName)
	if fd < 0 {
		lib.Puts("rtc open failed\n")
		lib.Halt(2)
	}
	var rate [4]byte
	binary.LittleEndian.PutUint32(rate[:], hz)
	if lib.Write(fd, rate[:]) < 0 {
		lib.Puts("rtc rate rejected\n")
		lib.Halt(3)
	}
	return fd
}

// Pingpong bounces a ball across the terminal, one line per RTC tick.
// An optional argument limits the number of lines.
func Pingpong(t abi.Trap) {
	lib := ulib.New(t)
	limit := frameLimit(lib)
	rtc := openRTC(lib, 32)
	defer lib.Close(rtc)

	const width = screenCols - 1
	pos, dir := 0, 1
	for frame := 0; limit == 0 || frame < limit; frame++ {
		line := strings.Repeat(" ", pos) + "o" + strings.Repeat(" ", width-1-pos) + "\n"
		lib.Puts(line)
		if pos+dir < 0 || pos+dir >= width {
			dir = -dir
		}
		pos += dir
		lib.Read(rtc, make([]byte, 4))
	}
}

// Fish draws frame0.txt and frame1.txt alternately straight into video
// memory. An optional argument limits the number of frames.
func Fish(t abi.Trap) {
	lib := ulib.New(t)
	limit := frameLimit(lib)

	frames := make([][]byte, 2)
	for i := range frames {
		frames[i] = readFile(lib, "frame"+strconv.Itoa(i)+".txt")
	}

	video, ret := lib.Vidmap()
	if ret != 0 {
		lib.Puts("vidmap failed\n")
		lib.Halt(3)
	}
	rtc := openRTC(lib, 8)
	defer lib.Close(rtc)

	for frame := 0; limit == 0 || frame < limit; frame++ {
		draw(t, video, frames[frame%2])
		for i := 0; i < 4; i++ {
			lib.Read(rtc, make([]byte, 4))
		}
	}
}

func readFile(lib *ulib.Lib, name string) []byte {
	fd := lib.Open(name)
	if fd < 0 {
		lib.Puts(name + " open failed\n")
		lib.Halt(2)
	}
	defer lib.Close(fd)

	var data []byte
	buf := make([]byte, 1024)
	for {
		n := lib.Read(fd, buf)
		if n <= 0 {
			return data
		}
		data = append(data, buf[:n]...)
	}
}

// draw writes text into the top rows of the screen at video.
func draw(t abi.Trap, video uint32, text []byte) {
	for y, line := range strings.Split(string(text), "\n") {
		row := make([]byte, 0, screenCols*2)
		for x := 0; x < screenCols; x++ {
			ch := byte(' ')
			if x < len(line) {
				ch = line[x]
			}
			row = append(row, ch, attribute)
		}
		t.Store(video+uint32(y*screenCols*2), row)
	}
}
