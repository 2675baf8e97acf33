// Command drise-submitter submits a single rendering job (or, with
// -manifest, a batch of jobs) to a drise-server instance (§6 "CLI of the
// submitter", enriched by §6/A8's additive batch manifest).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/config"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/dispatch"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
)

const submitterSecret = "drise-default-secret"

var submitterVersion = protocol.Version{Major: 1, Minor: 0, Revision: 0, Build: 1}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("drise-submitter", flag.ContinueOnError)
	manifestPath := fs.String("manifest", "", "path to a batch job manifest (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := config.Load("drise.options")
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", opts.ServerName, opts.PortNumber)
	client := dispatch.SubmitterClient{Secret: submitterSecret, Version: submitterVersion}

	if *manifestPath != "" {
		return submitManifest(client, *manifestPath, opts)
	}
	return submitSingle(client, addr, fs.Args())
}

func submitManifest(client dispatch.SubmitterClient, path string, opts config.Options) error {
	manifest, err := config.LoadManifest(path)
	if err != nil {
		return err
	}
	serverName := opts.ServerName
	if manifest.ServerName != "" {
		serverName = manifest.ServerName
	}
	port := opts.PortNumber
	if manifest.PortNumber != 0 {
		port = manifest.PortNumber
	}
	addr := fmt.Sprintf("%s:%d", serverName, port)

	for _, job := range manifest.Jobs {
		if job.IsAnimation() {
			err = client.SubmitAnimation(addr, protocol.SubmitJobAnim{
				Filename: job.Scene, Rx: job.Width, Ry: job.Height, Output: job.Output, Frames: job.Frames,
			})
		} else {
			err = client.SubmitTiled(addr, protocol.SubmitJobBasic{
				Filename: job.Scene, Rx: job.Width, Ry: job.Height, Output: job.Output, Gx: job.Tile.Gx, Gy: job.Tile.Gy,
			})
		}
		if err != nil {
			return fmt.Errorf("submitting %q: %w", job.Scene, err)
		}
	}
	return nil
}

func submitSingle(client dispatch.SubmitterClient, addr string, positional []string) error {
	switch len(positional) {
	case 6:
		scene, rx, ry, out, gx, gy := positional[0], positional[1], positional[2], positional[3], positional[4], positional[5]
		job, err := tiledJobFrom(scene, rx, ry, out, gx, gy)
		if err != nil {
			return err
		}
		return client.SubmitTiled(addr, job)
	case 5:
		scene, rx, ry, out, frames := positional[0], positional[1], positional[2], positional[3], positional[4]
		job, err := animJobFrom(scene, rx, ry, out, frames)
		if err != nil {
			return err
		}
		return client.SubmitAnimation(addr, job)
	default:
		return fmt.Errorf("usage: drise-submitter <scene> <Rx> <Ry> <out> <Gx> <Gy>  |  <scene> <Rx> <Ry> <out> <frames>  |  -manifest jobs.yaml")
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return uint32(v), nil
}

func tiledJobFrom(scene, rx, ry, out, gx, gy string) (protocol.SubmitJobBasic, error) {
	var job protocol.SubmitJobBasic
	job.Filename, job.Output = scene, out
	var err error
	if job.Rx, err = parseUint32(rx); err != nil {
		return job, err
	}
	if job.Ry, err = parseUint32(ry); err != nil {
		return job, err
	}
	if job.Gx, err = parseUint32(gx); err != nil {
		return job, err
	}
	if job.Gy, err = parseUint32(gy); err != nil {
		return job, err
	}
	return job, nil
}

func animJobFrom(scene, rx, ry, out, frames string) (protocol.SubmitJobAnim, error) {
	var job protocol.SubmitJobAnim
	job.Filename, job.Output = scene, out
	var err error
	if job.Rx, err = parseUint32(rx); err != nil {
		return job, err
	}
	if job.Ry, err = parseUint32(ry); err != nil {
		return job, err
	}
	if job.Frames, err = parseUint32(frames); err != nil {
		return job, err
	}
	return job, nil
}
