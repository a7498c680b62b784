package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/osmgo/osmgo/osm"
)

const OsmCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `OSM api control.

The default api_url is https://www.openstreetmap.org. For experiments use
the dev instance, https://api06.dev.openstreetmap.org.

Usage:
    osmctl node-get [--api_url=<api_url>] <id>
    osmctl way-get [--api_url=<api_url>] <id>
    osmctl relation-get [--api_url=<api_url>] <id>
    osmctl map [--api_url=<api_url>]
        --bbox=<min_lon,min_lat,max_lon,max_lat>
    osmctl changeset-get [--api_url=<api_url>] [--discussion] <id>
    osmctl note-create [--api_url=<api_url>]
        [--username=<username> | --password_file=<path>]
        --lat=<lat> --lon=<lon> <text>

Options:
    -h --help                Show this screen.
    --version                Show version.
    --api_url=<api_url>
    --bbox=<bbox>            Bounding box as min_lon,min_lat,max_lon,max_lat.
    --discussion             Include the changeset discussion.
    --username=<username>    Username, password is prompted.
    --password_file=<path>   Colon-separated user:pass file.
    --lat=<lat>
    --lon=<lon>`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], OsmCtlVersion)
	if err != nil {
		panic(err)
	}

	if nodeGet_, _ := opts.Bool("node-get"); nodeGet_ {
		nodeGet(opts)
	} else if wayGet_, _ := opts.Bool("way-get"); wayGet_ {
		wayGet(opts)
	} else if relationGet_, _ := opts.Bool("relation-get"); relationGet_ {
		relationGet(opts)
	} else if map_, _ := opts.Bool("map"); map_ {
		mapGet(opts)
	} else if changesetGet_, _ := opts.Bool("changeset-get"); changesetGet_ {
		changesetGet(opts)
	} else if noteCreate_, _ := opts.Bool("note-create"); noteCreate_ {
		noteCreate(opts)
	}
}

func newClient(opts docopt.Opts) *osm.Client {
	settings := osm.DefaultClientSettings()
	settings.AppId = fmt.Sprintf("osmctl %s", OsmCtlVersion)
	if apiUrl, err := opts.String("--api_url"); err == nil && apiUrl != "" {
		settings.BaseUrl = apiUrl
	}

	if path, err := opts.String("--password_file"); err == nil && path != "" {
		auth, err := osm.LoadPasswordFile(path, "")
		if err != nil {
			Err.Fatalf("Could not read password file (%s).", err)
		}
		settings.Auth = auth
	} else if username, err := opts.String("--username"); err == nil && username != "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", username)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			Err.Fatalf("Could not read password (%s).", err)
		}
		settings.Auth = &osm.BasicAuth{
			Username: username,
			Password: string(password),
		}
	}

	return osm.NewClient(settings)
}

func optId(opts docopt.Opts) int64 {
	idStr, _ := opts.String("<id>")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		Err.Fatalf("Invalid id (%s).", err)
	}
	return id
}

func optBbox(opts docopt.Opts) osm.Bbox {
	bboxStr, _ := opts.String("--bbox")
	bbox := osm.Bbox{}
	_, err := fmt.Sscanf(bboxStr, "%f,%f,%f,%f", &bbox.MinLon, &bbox.MinLat, &bbox.MaxLon, &bbox.MaxLat)
	if err != nil {
		Err.Fatalf("Invalid bbox (%s).", err)
	}
	return bbox
}

func printElement(elem osm.Element) {
	meta := elem.Meta()
	Out.Printf("%s %d v%d (changeset %d, %s)", elem.Type(), meta.Id, meta.Version, meta.Changeset, meta.User)
	for k, v := range meta.Tags {
		Out.Printf("  %s = %s", k, v)
	}
}

func nodeGet(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	node, err := client.NodeGet(optId(opts))
	if err != nil {
		Err.Fatalf("Get failed (%s).", err)
	}
	printElement(node)
	Out.Printf("  at %f, %f", node.Lat, node.Lon)
}

func wayGet(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	way, err := client.WayGet(optId(opts))
	if err != nil {
		Err.Fatalf("Get failed (%s).", err)
	}
	printElement(way)
	Out.Printf("  %d nodes", len(way.Nds))
}

func relationGet(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	relation, err := client.RelationGet(optId(opts))
	if err != nil {
		Err.Fatalf("Get failed (%s).", err)
	}
	printElement(relation)
	for _, member := range relation.Members {
		Out.Printf("  member %s %d as %q", member.Type, member.Ref, member.Role)
	}
}

func mapGet(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	elems, err := client.Map(optBbox(opts))
	if err != nil {
		Err.Fatalf("Map failed (%s).", err)
	}
	for _, elem := range elems {
		meta := elem.Meta()
		Out.Printf("%s %d v%d", elem.Type(), meta.Id, meta.Version)
	}
	Out.Printf("%d elements", len(elems))
}

func changesetGet(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	discussion, _ := opts.Bool("--discussion")
	changeset, err := client.ChangesetGet(optId(opts), discussion)
	if err != nil {
		Err.Fatalf("Get failed (%s).", err)
	}
	state := "closed"
	if changeset.Open {
		state = "open"
	}
	Out.Printf("changeset %d (%s) by %s", changeset.Id, state, changeset.User)
	for k, v := range changeset.Tags {
		Out.Printf("  %s = %s", k, v)
	}
	for _, comment := range changeset.Discussion {
		Out.Printf("  %s %s: %s", comment.Date, comment.User, comment.Text)
	}
}

func noteCreate(opts docopt.Opts) {
	client := newClient(opts)
	defer client.Close()

	lat, err := strconv.ParseFloat(mustString(opts, "--lat"), 64)
	if err != nil {
		Err.Fatalf("Invalid lat (%s).", err)
	}
	lon, err := strconv.ParseFloat(mustString(opts, "--lon"), 64)
	if err != nil {
		Err.Fatalf("Invalid lon (%s).", err)
	}
	text, _ := opts.String("<text>")

	note, err := client.NoteCreate(lat, lon, text)
	if err != nil {
		Err.Fatalf("Create failed (%s).", err)
	}
	Out.Printf("note %d (%s)", note.Id, note.Status)
}

func mustString(opts docopt.Opts, key string) string {
	value, err := opts.String(key)
	if err != nil {
		Err.Fatalf("Missing %s.", key)
	}
	return value
}
