package survey

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/node"
)

// Directory learns who the queried node is and whom it talks to.
type Directory struct {
	client *node.Client
}

// NewDirectory creates a directory backed by client.
func NewDirectory(client *node.Client) *Directory {
	return &Directory{client: client}
}

// IdentifySelf returns the queried node with its software version.
func (d *Directory) IdentifySelf(ctx context.Context) (model.Node, error) {
	id, version, err := d.client.Identity(ctx)
	if err != nil {
		return model.Node{}, fmt.Errorf("failed to identify surveyed node: %w", err)
	}
	return model.Node{ID: id, Version: version}, nil
}

// SeedFrontier builds the first round's frontier: ids from the optional
// node list file at staticListPath, then the queried node's authenticated
// inbound and outbound peers. An empty path skips the file.
func (d *Directory) SeedFrontier(ctx context.Context, staticListPath string) (*model.IDSet, error) {
	frontier := model.NewIDSet()

	if staticListPath != "" {
		ids, err := ReadNodeListFile(staticListPath)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			frontier.Add(id)
		}
	}

	peers, err := d.client.Peers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authenticated peers: %w", err)
	}
	for _, p := range peers.Inbound {
		frontier.Add(p.ID)
	}
	for _, p := range peers.Outbound {
		frontier.Add(p.ID)
	}

	return frontier, nil
}

// ReadNodeListFile reads a node list file. See ReadNodeList.
func ReadNodeListFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open node list: %w", err)
	}
	defer f.Close()

	ids, err := ReadNodeList(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read node list %s: %w", path, err)
	}
	return ids, nil
}

// ReadNodeList returns one node id per line. Surrounding whitespace is
// trimmed; blank lines and lines starting with '#' are skipped.
func ReadNodeList(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
