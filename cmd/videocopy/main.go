package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/videocopy"
	"github.com/slackhq/videocopy/config"
	"github.com/slackhq/videocopy/dump"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/util"
)

// A version string that can be set with
//
//	-ldflags "-X main.Build=SOMEVERSION"
//
// at compile-time.
var Build string

func init() {
	if Build == "" {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}

		Build = strings.TrimPrefix(info.Main.Version, "v")
	}
}

func main() {
	configPath := flag.String("config", "", "Path to either a file or directory to load configuration from")
	configTest := flag.Bool("test", false, "Test the config and print the end result. Non zero exit indicates a faulty config")
	printVersion := flag.Bool("version", false, "Print version")
	printUsage := flag.Bool("help", false, "Print command line usage")
	queueName := flag.String("queue", "input", "Queue of the resource to use, input or output")
	resourceID := flag.Uint("resource", 0, "Id of the resource to use")
	inPath := flag.String("in", "", "Raw frame file to queue into the resource, may be .zst compressed")
	outPath := flag.String("out", "", "File to dump the resource contents into, compressed if it ends in .zst")
	previewPath := flag.String("preview", "", "Write a .tiff or .bmp preview of the resource contents")
	completionsPath := flag.String("completions", "", "Append the RESOURCE_QUEUE completions, in their wire form, to this file")

	flag.Parse()

	if *printVersion {
		fmt.Printf("Version: %s\n", Build)
		os.Exit(0)
	}

	if *printUsage {
		flag.Usage()
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Println("-config flag must be set")
		flag.Usage()
		os.Exit(1)
	}

	queue, ok := protocol.ParseQueueType(*queueName)
	if !ok {
		fmt.Printf("-queue must be input or output, got %s\n", *queueName)
		os.Exit(1)
	}

	l := logrus.New()
	l.Out = os.Stdout

	c := config.NewC(l)
	err := c.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %s", err)
		os.Exit(1)
	}

	ctrl, err := videocopy.Main(c, *configTest, Build, l)
	if err != nil {
		util.LogWithContextIfNeeded("Failed to start", err, l)
		os.Exit(1)
	}

	if *configTest {
		ctrl.Stop()
		os.Exit(0)
	}

	id := uint32(*resourceID)
	if *inPath == "" && *outPath == "" && *previewPath == "" {
		notifyReady(l, fmt.Sprintf("%d input, %d output resources",
			len(ctrl.Resources(protocol.QueueInput)), len(ctrl.Resources(protocol.QueueOutput))))
		ctrl.ShutdownBlock()
		os.Exit(0)
	}

	resps, err := run(l, ctrl, queue, id, *inPath, *outPath, *previewPath)
	if *completionsPath != "" {
		if werr := writeCompletions(*completionsPath, resps...); werr != nil {
			err = errors.Join(err, util.NewContextualError("Failed to write completions", nil, werr).WithField("path", *completionsPath))
		}
	}
	ctrl.Stop()
	if err != nil {
		util.LogWithContextIfNeeded("Failed to transfer frame", err, l)
		os.Exit(1)
	}
}

// run queues the frame in inPath, then dumps whatever the resource holds. The
// completions of every queue and dequeue are returned, failed ones included.
func run(l *logrus.Logger, ctrl *videocopy.Control, queue protocol.QueueType, id uint32, inPath, outPath, previewPath string) (resps []protocol.ResourceQueueResp, err error) {
	fields := map[string]any{"queue": queue, "resource": id}

	params, err := ctrl.Params(queue, id)
	if err != nil {
		return nil, util.NewContextualError("Unknown resource", fields, err)
	}

	if inPath != "" {
		raw, err := dump.ReadFile(inPath)
		if err != nil {
			return resps, util.NewContextualError("Failed to read input frame", fields, err).WithField("path", inPath)
		}

		resp := ctrl.QueueFrame(queue, id, videocopy.Frame{Planes: splitPlanes(params, raw)})
		resps = append(resps, resp)
		if !resp.Type.OK() {
			return resps, util.NewContextualError("Frame was not queued", fields, nil).WithField("response", fmt.Sprintf("%#x", uint32(resp.Type)))
		}
		l.WithFields(fields).WithField("size", resp.Size).Info("Frame queued")
	}

	if outPath == "" && previewPath == "" {
		return resps, nil
	}

	planes, resp := ctrl.DequeueFrame(queue, id)
	resps = append(resps, resp)
	if !resp.Type.OK() {
		return resps, util.NewContextualError("Frame was not dequeued", fields, nil).WithField("response", fmt.Sprintf("%#x", uint32(resp.Type)))
	}

	if outPath != "" {
		w, err := dump.Create(outPath)
		if err != nil {
			return resps, util.NewContextualError("Failed to create dump file", fields, err).WithField("path", outPath)
		}
		err = errors.Join(w.WritePlanes(planes), w.Close())
		if err != nil {
			return resps, util.NewContextualError("Failed to write dump file", fields, err).WithField("path", outPath)
		}
		l.WithFields(fields).WithField("path", outPath).WithField("size", w.Written()).Info("Frame dumped")
	}

	if previewPath != "" {
		img, err := dump.Preview(params, planes)
		if err != nil {
			return resps, util.NewContextualError("Failed to build preview", fields, err)
		}
		if err := dump.WritePreview(previewPath, img); err != nil {
			return resps, util.NewContextualError("Failed to write preview", fields, err).WithField("path", previewPath)
		}
		l.WithFields(fields).WithField("path", previewPath).Info("Preview written")
	}

	return resps, nil
}

// splitPlanes cuts a tightly packed frame into its planes. Coded frames and
// anything past the last plane stay whole in the last plane.
func splitPlanes(params format.Params, raw []byte) [][]byte {
	n := int(params.NumPlanes)
	if n <= 1 || params.Format.IsCodec() {
		return [][]byte{raw}
	}

	planes := make([][]byte, n)
	for i := 0; i < n-1; i++ {
		size := min(int(params.PlaneFormats[i].PlaneSize), len(raw))
		planes[i], raw = raw[:size], raw[size:]
	}
	planes[n-1] = raw
	return planes
}

// writeCompletions appends the wire form of each completion to path.
func writeCompletions(path string, resps ...protocol.ResourceQueueResp) error {
	buf := make([]byte, 0, len(resps)*protocol.ResourceQueueRespSize)
	for _, r := range resps {
		b, err := r.Encode(make([]byte, protocol.ResourceQueueRespSize))
		if err != nil {
			return err
		}
		buf = append(buf, b...)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	_, err = f.Write(buf)
	return errors.Join(err, f.Close())
}
