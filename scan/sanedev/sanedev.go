// Package sanedev drives a SANE scanner through the scanimage CLI, one page
// per invocation. Each BeginPage runs scanimage for the next sheet and
// buffers the PNM frame; ReadLine then replays it a scanline at a time so
// the acquisition contract stays line-oriented.
package sanedev

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wudi/scan2pdf/scan"
)

// Backend locates and opens SANE devices via scanimage.
type Backend struct {
	// Binary overrides the scanimage executable name.
	Binary string
}

func New() *Backend { return &Backend{Binary: "scanimage"} }

func (b *Backend) binary() string {
	if b.Binary == "" {
		return "scanimage"
	}
	return b.Binary
}

// ListDevices parses `scanimage -L` output.
func (b *Backend) ListDevices() ([]string, error) {
	out, err := exec.Command(b.binary(), "-L").Output()
	if err != nil {
		return nil, fmt.Errorf("sanedev: list devices: %w", err)
	}
	var devices []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		// device `epjitsu:libusb:001:004' is a Fujitsu ScanSnap ...
		start := strings.Index(line, "`")
		end := strings.Index(line, "'")
		if start >= 0 && end > start {
			devices = append(devices, line[start+1:end])
		}
	}
	if len(devices) == 0 {
		return nil, scan.ErrNoDevice
	}
	return devices, nil
}

// Open prepares a session for the named device. Options are resolved to
// scanimage arguments here, in a single dispatch over the variant tag.
func (b *Backend) Open(name string, opts []scan.Option) (scan.Session, error) {
	if name == "" {
		devices, err := b.ListDevices()
		if err != nil {
			return nil, err
		}
		name = devices[0]
	}
	return &session{backend: b, device: name, args: OptionArgs(opts)}, nil
}

// OptionArgs converts tagged option variants to scanimage flags.
func OptionArgs(opts []scan.Option) []string {
	args := make([]string, 0, len(opts))
	for _, o := range opts {
		switch o.Kind {
		case scan.OptionBool:
			v := "no"
			if o.Bool {
				v = "yes"
			}
			args = append(args, fmt.Sprintf("--%s=%s", o.Name, v))
		case scan.OptionInt:
			args = append(args, fmt.Sprintf("--%s=%d", o.Name, o.Int))
		case scan.OptionFixed:
			args = append(args, fmt.Sprintf("--%s=%g", o.Name, o.Fixed))
		case scan.OptionString:
			args = append(args, fmt.Sprintf("--%s=%s", o.Name, o.Text))
		}
	}
	return args
}

type session struct {
	backend *Backend
	device  string
	args    []string

	params scan.Parameters
	rows   [][]byte
	row    int
	done   bool
	cancel context.CancelFunc
}

func (s *session) BeginPage() (bool, error) {
	if s.done {
		return false, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	args := append([]string{"-d", s.device, "--format=pnm"}, s.args...)
	cmd := exec.CommandContext(ctx, s.backend.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		// Exit status 7 is SANE_STATUS_NO_DOCS: the feeder is empty, which
		// is the normal end of a batch rather than a failure.
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 7 {
			s.done = true
			return false, nil
		}
		if strings.Contains(stderr.String(), "no documents") {
			s.done = true
			return false, nil
		}
		return false, fmt.Errorf("sanedev: scanimage: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	params, rows, err := parsePNM(bytes.NewReader(out))
	if err != nil {
		return false, fmt.Errorf("sanedev: parse frame: %w", err)
	}
	s.params = params
	s.rows = rows
	s.row = 0
	return true, nil
}

func (s *session) Parameters() (scan.Parameters, error) {
	if s.rows == nil {
		return scan.Parameters{}, fmt.Errorf("sanedev: no page in progress")
	}
	return s.params, nil
}

func (s *session) ReadLine(buf []byte) (bool, error) {
	if s.rows == nil {
		return false, fmt.Errorf("sanedev: no page in progress")
	}
	if s.row >= len(s.rows) {
		return false, nil
	}
	if len(buf) < len(s.rows[s.row]) {
		return false, fmt.Errorf("sanedev: buffer too small: %d < %d", len(buf), len(s.rows[s.row]))
	}
	copy(buf, s.rows[s.row])
	s.row++
	return true, nil
}

func (s *session) Cancel() {
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *session) Close() error {
	s.Cancel()
	return nil
}

// parsePNM reads a binary P6 (RGB) or P5 (gray) frame, expanding gray to
// packed RGB so every backend delivers the same line format.
func parsePNM(r io.Reader) (scan.Parameters, [][]byte, error) {
	br := bufio.NewReader(r)
	magic, err := pnmToken(br)
	if err != nil {
		return scan.Parameters{}, nil, err
	}
	if magic != "P6" && magic != "P5" {
		return scan.Parameters{}, nil, fmt.Errorf("unsupported PNM magic %q", magic)
	}
	var dims [3]int
	for i := 0; i < 3; i++ {
		tok, err := pnmToken(br)
		if err != nil {
			return scan.Parameters{}, nil, err
		}
		dims[i], err = strconv.Atoi(tok)
		if err != nil {
			return scan.Parameters{}, nil, fmt.Errorf("bad PNM header token %q", tok)
		}
	}
	width, height, maxval := dims[0], dims[1], dims[2]
	if width <= 0 || height <= 0 || maxval != 255 {
		return scan.Parameters{}, nil, fmt.Errorf("unsupported PNM geometry %dx%d maxval %d", width, height, maxval)
	}
	samples := 3
	if magic == "P5" {
		samples = 1
	}
	raw := make([]byte, samples*width)
	rows := make([][]byte, 0, height)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(br, raw); err != nil {
			return scan.Parameters{}, nil, fmt.Errorf("short PNM frame at row %d: %w", y, err)
		}
		row := make([]byte, 3*width)
		if samples == 3 {
			copy(row, raw)
		} else {
			for x := 0; x < width; x++ {
				row[3*x], row[3*x+1], row[3*x+2] = raw[x], raw[x], raw[x]
			}
		}
		rows = append(rows, row)
	}
	return scan.Parameters{
		PixelsPerLine: width,
		Lines:         height,
		BytesPerLine:  3 * width,
		Depth:         8,
	}, rows, nil
}

// pnmToken returns the next whitespace-delimited header token, skipping
// comments.
func pnmToken(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		switch {
		case b == '#':
			if _, err := br.ReadString('\n'); err != nil {
				return "", err
			}
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			if sb.Len() > 0 {
				return sb.String(), nil
			}
		default:
			sb.WriteByte(b)
		}
	}
}
