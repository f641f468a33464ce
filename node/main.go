package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang/protobuf/proto"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/ngaut/log"
	"github.com/pingcap/badger"
	"github.com/pingcap/kvproto/pkg/metapb"
	"github.com/pingcap/kvproto/pkg/tikvpb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbramwell/tikv/tikv"
	"github.com/rbramwell/tikv/tikv/mvcc"
	"google.golang.org/grpc"
)

const (
	dbpath = "/tmp/badger"

	// splitCheckInterval is how often this node sweeps every region it
	// serves for a split-check task. A real deployment would tune this
	// per workload; spec.md §1 leaves the cadence to the embedder.
	splitCheckInterval = 10 * time.Second

	// regionMaxSize/splitSize are the SizeChecker thresholds (spec.md
	// §4.4), sized for a 96MB region with a 64MB split point, matching
	// the ratio TiKV ships by default.
	regionMaxSize = 96 * 1024 * 1024
	splitSize     = 64 * 1024 * 1024

	metricsAddr = ":9092"
)

var (
	InternalKeyPrefix        = `internal\`
	InternalRegionMetaPrefix = []byte(InternalKeyPrefix + "region")
	InternalStoreMetaKey     = []byte(InternalKeyPrefix + "store")
)

func InternalRegionMetaKey(regionId uint64) []byte {
	return []byte(string(InternalRegionMetaPrefix) + strconv.FormatUint(regionId, 10))
}

func Exists(name string) (bool, error) {
	_, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Node owns this store's physical state: its badger-backed DBBundle, the
// set of regions it serves, and the gRPC/split-check machinery built on
// top. PD cluster membership (store/region allocation via a placement
// driver) is out of this repo's scope (spec.md's Non-goals) — a Node
// bootstraps a single local store with one root region instead of
// registering with a cluster.
type Node struct {
	clusterID uint64
	db        *mvcc.DBBundle
	storeMeta metapb.Store
	regions   map[uint64]*metapb.Region

	tikvServer *tikv.Server
	grpcServer *grpc.Server
}

func NewNode() *Node {
	n := &Node{regions: make(map[uint64]*metapb.Region)}
	n.storeMeta.Address = "127.0.0.1:9191"

	opts := badger.DefaultOptions
	opts.Dir = dbpath
	opts.ValueDir = dbpath
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal(err)
	}
	n.db = mvcc.NewDBBundle(db)
	n.clusterID = 1

	return n
}

func needInit(storeMeta *metapb.Store) bool {
	return storeMeta.Id == 0
}

func (n *Node) loadMeta() {
	err := n.db.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(InternalStoreMetaKey)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := proto.Unmarshal(val, &n.storeMeta); err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := InternalRegionMetaPrefix
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			r := &metapb.Region{}
			if err := proto.Unmarshal(v, r); err != nil {
				return err
			}
			n.regions[r.Id] = r
		}
		return nil
	})

	if err != nil && err != badger.ErrKeyNotFound {
		log.Fatal(err)
	}

	log.Infof("meta in local store: %+v", n)
}

// initStore bootstraps a fresh node: a store id, and a single root region
// spanning the entire keyspace. A cluster with a placement driver would
// instead allocate ids and carve up the keyspace on demand; without one,
// the whole keyspace starts as one region. This node's split-check loop
// reports where that region should split, but nothing here performs the
// split, so the region set stays as bootstrapped.
func (n *Node) initStore() error {
	log.Info("initializing store")
	n.storeMeta.Id = 1

	rootRegion := &metapb.Region{
		Id:          1,
		StartKey:    []byte{},
		EndKey:      []byte{},
		RegionEpoch: &metapb.RegionEpoch{ConfVer: 1, Version: 1},
		Peers:       []*metapb.Peer{{Id: 1, StoreId: n.storeMeta.Id}},
	}
	n.regions[rootRegion.Id] = rootRegion

	storeBuf, err := proto.Marshal(&n.storeMeta)
	if err != nil {
		log.Fatal(err)
	}

	return n.db.DB.Update(func(txn *badger.Txn) error {
		if err := txn.Set(InternalStoreMetaKey, storeBuf); err != nil {
			return err
		}
		for rid, region := range n.regions {
			regionBuf, err := proto.Marshal(region)
			if err != nil {
				return err
			}
			if err := txn.Set(InternalRegionMetaKey(rid), regionBuf); err != nil {
				return err
			}
		}
		return nil
	})
}

// splitCheckLoop periodically sweeps every region this node serves,
// enqueuing a split-check task for each (spec.md §1's scheduling, owned
// by the embedder rather than the core).
func (n *Node) splitCheckLoop() {
	ticker := time.NewTicker(splitCheckInterval)
	defer ticker.Stop()
	for range ticker.C {
		n.tikvServer.ScheduleAllSplitChecks()
	}
}

func (n *Node) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Errorf("metrics server stopped: %v", err)
		}
	}()
}

func (n *Node) start() {
	n.loadMeta()
	if needInit(&n.storeMeta) {
		if err := n.initStore(); err != nil {
			log.Fatal(err)
		}
	}

	n.tikvServer = tikv.NewServer(n.storeMeta, n.db, regionMaxSize, splitSize)
	for _, region := range n.regions {
		n.tikvServer.SetRegion(region)
	}

	n.serveMetrics()
	go n.splitCheckLoop()

	grpc_prometheus.EnableHandlingTimeHistogram()
	n.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	tikvpb.RegisterTikvServer(n.grpcServer, n.tikvServer)
	grpc_prometheus.Register(n.grpcServer)

	l, err := net.Listen("tcp", n.storeMeta.Address)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(n.grpcServer.Serve(l))
}

func (n *Node) Close() {
	n.tikvServer.Close()
	n.db.DB.Close()
}

func main() {
	log.SetLevelByString("debug")
	n := NewNode()
	n.start()
	n.Close()
}
