// Command blobctl is a small CLI over the configured blob storage. The
// storage backend comes from the discovered features config file, so the same
// commands work against filesystem, memory, S3 and GCS backends.
//
// Usage:
//
//	blobctl [flags] ls
//	blobctl [flags] get <key>
//	blobctl [flags] put <key> [file]
//	blobctl [flags] rm <key>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tendant/simple-features/pkg/blob"
	_ "github.com/tendant/simple-features/pkg/featuredefs"
	"github.com/tendant/simple-features/pkg/features"
)

func main() {
	name := flag.String("name", "", "use the named feature instead of the default storage")
	namespace := flag.String("namespace", "", "scope all operations under this namespace prefix")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	store, err := openStorage(ctx, *name, *namespace)
	if err != nil {
		fatal(err)
	}

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "ls":
		err = runList(ctx, store)
	case "get":
		err = runGet(ctx, store, args)
	case "put":
		err = runPut(ctx, store, args)
	case "rm":
		err = runRemove(ctx, store, args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "blobctl:", err)
	os.Exit(1)
}

func openStorage(ctx context.Context, name, namespace string) (blob.Storage, error) {
	var store blob.Storage
	var err error
	if name != "" {
		store, err = features.ServiceByName[blob.Storage](ctx, name)
	} else {
		store, err = features.Service[blob.Storage](ctx)
	}
	if err != nil {
		return nil, err
	}
	if namespace != "" {
		return store.Namespace(ctx, namespace)
	}
	return store, nil
}

func runList(ctx context.Context, store blob.Storage) error {
	return store.Walk(ctx, func(b blob.Blob) error {
		_, err := fmt.Println(b.Key())
		return err
	})
}

func runGet(ctx context.Context, store blob.Storage, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: blobctl get <key>")
	}
	b, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	rc, err := b.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(os.Stdout, rc)
	return err
}

func runPut(ctx context.Context, store blob.Storage, args []string) error {
	var in io.Reader
	switch len(args) {
	case 1:
		in = os.Stdin
	case 2:
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	default:
		return fmt.Errorf("usage: blobctl put <key> [file]")
	}
	return store.Put(ctx, args[0], in)
}

func runRemove(ctx context.Context, store blob.Storage, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: blobctl rm <key>")
	}
	del, ok := store.(blob.DeletableStorage)
	if !ok {
		return fmt.Errorf("storage %s does not support delete", store.ID())
	}
	return del.Delete(ctx, args[0])
}
