// Command rs wraps the reedsolomon library for working with shard files.
//
// Shards are plain files of equal size, data shards first:
//
//	rs encode -k 4 -m 2 d0 d1 d2 d3 p0 p1
//	rs verify -k 4 -m 2 d0 d1 d2 d3 p0 p1
//	rs decode -k 4 -m 2 d0 d1 d2 d3 p0 p1
//
// decode treats a missing file as a lost shard and rewrites it.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/claunia/reedsolomon"
)

func main() {
	app := cli.NewApp()
	app.Name = "rs"
	app.Usage = "Reed-Solomon erasure coding over shard files"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "k",
			Value: 4,
			Usage: "number of data shards",
		},
		cli.IntFlag{
			Name:  "m",
			Value: 2,
			Usage: "number of parity shards",
		},
		cli.IntFlag{
			Name:  "offset",
			Value: 0,
			Usage: "window start in bytes",
		},
		cli.IntFlag{
			Name:  "length",
			Value: -1,
			Usage: "window length in bytes, -1 for the rest of the shard",
		},
		cli.StringFlag{
			Name:   "loop",
			Usage:  "coding loop kernel (see 'rs loops')",
			EnvVar: reedsolomon.CodingLoopEnv,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "encode",
			Usage:     "compute parity shards from data shards",
			ArgsUsage: "<data shards...> <parity shards...>",
			Action:    runEncode,
		},
		{
			Name:      "verify",
			Usage:     "check that parity shards match the data shards",
			ArgsUsage: "<data shards...> <parity shards...>",
			Action:    runVerify,
		},
		{
			Name:      "decode",
			Usage:     "rebuild missing shard files from the survivors",
			ArgsUsage: "<data shards...> <parity shards...>",
			Action:    runDecode,
		},
		{
			Name:   "loops",
			Usage:  "list the available coding loop kernels",
			Action: runLoops,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("command failed", "err", err)
	}
}

func newCodec(c *cli.Context) (*reedsolomon.RS, error) {
	k, m := c.GlobalInt("k"), c.GlobalInt("m")
	var opts []reedsolomon.Option
	if name := c.GlobalString("loop"); name != "" {
		loop, err := reedsolomon.LoopByName(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reedsolomon.WithCodingLoop(loop))
	}
	return reedsolomon.New(k, m, opts...)
}

// loadShards reads the shard files named by args. A missing file yields
// present=false and is backfilled with zeros once the size is known.
func loadShards(c *cli.Context, allowMissing bool) (shards [][]byte, present []bool, err error) {
	k, m := c.GlobalInt("k"), c.GlobalInt("m")
	paths := c.Args()
	if len(paths) != k+m {
		return nil, nil, errors.Errorf("%d shard files given, expect %d", len(paths), k+m)
	}

	shards = make([][]byte, k+m)
	present = make([]bool, k+m)
	size := -1
	for i, path := range paths {
		buf, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && allowMissing {
				continue
			}
			return nil, nil, errors.Wrapf(err, "shard %d", i)
		}
		shards[i] = buf
		present[i] = true
		if size == -1 {
			size = len(buf)
		} else if len(buf) != size {
			return nil, nil, errors.Errorf("shard %d has %d bytes, expect %d", i, len(buf), size)
		}
	}
	if size == -1 {
		return nil, nil, errors.New("no shard file exists")
	}
	for i := range shards {
		if shards[i] == nil {
			shards[i] = make([]byte, size)
		}
	}
	return shards, present, nil
}

func window(c *cli.Context, size int) (offset, byteCount int) {
	offset = c.GlobalInt("offset")
	byteCount = c.GlobalInt("length")
	if byteCount < 0 {
		byteCount = size - offset
	}
	return offset, byteCount
}

func runEncode(c *cli.Context) error {
	r, err := newCodec(c)
	if err != nil {
		return err
	}
	shards, present, err := loadShards(c, true)
	if err != nil {
		return err
	}
	for i := 0; i < r.DataNum; i++ {
		if !present[i] {
			return errors.Errorf("data shard %d missing, cannot encode", i)
		}
	}

	offset, byteCount := window(c, len(shards[0]))
	if err = r.EncodeParity(shards, offset, byteCount); err != nil {
		return err
	}
	for i := r.DataNum; i < len(shards); i++ {
		if err = os.WriteFile(c.Args()[i], shards[i], 0644); err != nil {
			return err
		}
	}
	log.Info("parity written",
		"data", r.DataNum, "parity", r.ParityNum,
		"offset", offset, "bytes", byteCount)
	return nil
}

func runVerify(c *cli.Context) error {
	r, err := newCodec(c)
	if err != nil {
		return err
	}
	shards, _, err := loadShards(c, false)
	if err != nil {
		return err
	}

	offset, byteCount := window(c, len(shards[0]))
	temp := make([]byte, offset+byteCount)
	ok, err := r.IsParityCorrectWithBuffer(shards, offset, byteCount, temp)
	if err != nil {
		return err
	}
	if !ok {
		return cli.NewExitError("parity does NOT match", 1)
	}
	log.Info("parity matches", "offset", offset, "bytes", byteCount)
	return nil
}

func runDecode(c *cli.Context) error {
	r, err := newCodec(c)
	if err != nil {
		return err
	}
	shards, present, err := loadShards(c, true)
	if err != nil {
		return err
	}

	offset, byteCount := window(c, len(shards[0]))
	if err = r.DecodeMissing(shards, present, offset, byteCount); err != nil {
		return err
	}
	restored := 0
	for i := range shards {
		if !present[i] {
			if err = os.WriteFile(c.Args()[i], shards[i], 0644); err != nil {
				return err
			}
			restored++
		}
	}
	if restored == 0 {
		log.Info("nothing to do, all shards present")
		return nil
	}
	log.Info("shards restored", "count", restored, "offset", offset, "bytes", byteCount)
	return nil
}

func runLoops(c *cli.Context) error {
	for _, loop := range reedsolomon.AllCodingLoops {
		fmt.Println(loop.String())
	}
	return nil
}
