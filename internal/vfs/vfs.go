// Package vfs implements the content-addressed, in-memory virtual
// filesystem the interpreter executes against (spec.md §3 VFS entity, §6
// Filesystem interface). Every path is normalized and quota-checked before
// any lookup; "." and ".." can never escape the virtual root.
package vfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"
)

// Permission bits reuse the POSIX layout from golang.org/x/sys/unix so the
// virtual mode bits behave the way callers expect, without ever being
// handed to a real syscall.
const (
	ModeDir  = unix.S_IFDIR
	ModeFile = unix.S_IFREG
	ModeLnk  = unix.S_IFLNK

	PermDefaultFile = 0o644
	PermDefaultDir  = 0o755
)

// Kind is the inode variant.
type Kind int

const (
	RegularFile Kind = iota
	Directory
	Symlink
)

var (
	ErrNotFound         = errors.New("vfs: not found")
	ErrAlreadyExists    = errors.New("vfs: already exists")
	ErrPermissionDenied = errors.New("vfs: permission denied")
	ErrQuotaExceeded    = errors.New("vfs: quota exceeded")
	ErrNotDir           = errors.New("vfs: not a directory")
	ErrIsDir            = errors.New("vfs: is a directory")
	ErrInvalid          = errors.New("vfs: invalid path")
)

// Inode is a file, directory, or (never-followed) symlink node.
type Inode struct {
	Kind    Kind
	Mode    uint32
	MTime   time.Time
	UID     int
	GID     int
	Content []byte            // RegularFile payload; shared with other inodes via block
	Target  string            // Symlink payload (stored, never resolved)
	Entries map[string]*Inode // Directory payload, name -> child

	block *contentBlock // RegularFile payload's backing block, for dedup refcounting
}

// contentBlock is one deduplicated content entry in the VFS's
// content-addressed store (spec.md §2 "content-addressed in-memory tree"):
// every Write/Append hashes its payload and interns it here, so two files
// holding identical bytes share one backing slice instead of two.
type contentBlock struct {
	hash  [32]byte // blake2b-256, the addressing key
	fast  uint64   // xxhash, cheap pre-filter before the blake2b comparison
	data  []byte
	count int // number of inodes currently referencing this block
}

// Metadata is the subset of Inode exposed by the collaborator contract.
type Metadata struct {
	Kind  Kind
	Size  int64
	Mode  uint32
	MTime time.Time
}

// Limits bounds total VFS size (spec.md §3 Invariants / §5 counters).
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
	MaxFileCount int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:  10 << 20,
		MaxTotalSize: 10 << 20,
		MaxFileCount: 10000,
	}
}

// FS is the in-memory virtual filesystem. It is safe for concurrent use by
// a single session's cooperative run loop only; cross-session sharing
// requires the caller to serialize access (spec.md §5 Shared-resource
// policy).
type FS struct {
	mu     sync.Mutex
	root   *Inode
	limits Limits

	totalBytes int64
	fileCount  int

	blocks map[uint64][]*contentBlock // fastHash -> candidate blocks sharing that bucket

	mounts map[string]*FS // absolute virtual path -> backing FS, longest-prefix wins
}

// New creates an empty VFS rooted at "/".
func New(limits Limits) *FS {
	return &FS{
		root: &Inode{
			Kind:    Directory,
			Mode:    PermDefaultDir,
			MTime:   time.Time{},
			Entries: make(map[string]*Inode),
		},
		limits: limits,
		blocks: make(map[uint64][]*contentBlock),
		mounts: make(map[string]*FS),
	}
}

// Mount composes a backing FS at an absolute path; the longest matching
// mount prefix wins on lookup (spec.md §3 Mount point).
func (fs *FS) Mount(path string, backing *FS) error {
	p, err := Normalize(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mounts[p] = backing
	return nil
}

// Normalize resolves "." and "..", collapses "//", NFC-normalizes each
// segment, and guarantees the result cannot escape "/" (spec.md §8
// invariant 4: read(normalize("/..a/../../b")) == read("/b")).
func Normalize(path string) (string, error) {
	if path == "" {
		return "", ErrInvalid
	}
	segs := strings.Split(path, "/")
	var stack []string
	for _, s := range segs {
		s = norm.NFC.String(s)
		switch s {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			// at root: ".." is a no-op, never escapes (invariant 4)
		default:
			stack = append(stack, s)
		}
	}
	return "/" + strings.Join(stack, "/"), nil
}

func (fs *FS) resolveMount(norm string) (*FS, string) {
	best := ""
	for prefix := range fs.mounts {
		if (norm == prefix || strings.HasPrefix(norm, prefix+"/")) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return fs, norm
	}
	rel := strings.TrimPrefix(norm, best)
	if rel == "" {
		rel = "/"
	}
	return fs.mounts[best], rel
}

func splitParent(norm string) (dir string, name string) {
	if norm == "/" {
		return "/", ""
	}
	idx := strings.LastIndex(norm, "/")
	if idx <= 0 {
		return "/", norm[idx+1:]
	}
	return norm[:idx], norm[idx+1:]
}

func (fs *FS) lookup(norm string) (*Inode, error) {
	if norm == "/" {
		return fs.root, nil
	}
	cur := fs.root
	for _, seg := range strings.Split(strings.TrimPrefix(norm, "/"), "/") {
		if cur.Kind != Directory {
			return nil, ErrNotDir
		}
		child, ok := cur.Entries[seg]
		if !ok {
			return nil, ErrNotFound
		}
		cur = child
	}
	return cur, nil
}

func hashContent(b []byte) ([32]byte, uint64) {
	return blake2b.Sum256(b), xxhash.Sum64(b)
}

// internBlock returns the shared contentBlock for b, creating one if no
// existing block (matched first by the cheap xxhash bucket, then confirmed
// by the blake2b content hash) already holds this content.
func (fs *FS) internBlock(b []byte) *contentBlock {
	hash, fast := hashContent(b)
	for _, blk := range fs.blocks[fast] {
		if blk.hash == hash {
			blk.count++
			return blk
		}
	}
	blk := &contentBlock{hash: hash, fast: fast, data: append([]byte{}, b...), count: 1}
	fs.blocks[fast] = append(fs.blocks[fast], blk)
	return blk
}

// releaseBlock drops one reference to blk, freeing it from the store once
// nothing holds it anymore.
func (fs *FS) releaseBlock(blk *contentBlock) {
	if blk == nil {
		return
	}
	blk.count--
	if blk.count > 0 {
		return
	}
	bucket := fs.blocks[blk.fast]
	for i, b := range bucket {
		if b == blk {
			fs.blocks[blk.fast] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(fs.blocks[blk.fast]) == 0 {
		delete(fs.blocks, blk.fast)
	}
}

// Read returns a file's bytes. Symlinks are never followed.
func (fs *FS) Read(path string) ([]byte, error) {
	np, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Read(rel)
	}
	n, err := fs.lookup(np)
	if err != nil {
		return nil, err
	}
	if n.Kind == Directory {
		return nil, ErrIsDir
	}
	out := make([]byte, len(n.Content))
	copy(out, n.Content)
	return out, nil
}

func (fs *FS) ensureParentDirs(np string, parents bool) (*Inode, error) {
	dir, _ := splitParent(np)
	if dir == "/" {
		return fs.root, nil
	}
	cur := fs.root
	for _, seg := range strings.Split(strings.TrimPrefix(dir, "/"), "/") {
		child, ok := cur.Entries[seg]
		if !ok {
			if !parents {
				return nil, ErrNotFound
			}
			child = &Inode{Kind: Directory, Mode: PermDefaultDir, Entries: make(map[string]*Inode)}
			cur.Entries[seg] = child
		}
		if child.Kind != Directory {
			return nil, ErrNotDir
		}
		cur = child
	}
	return cur, nil
}

func (fs *FS) writeInode(np string, b []byte, append_ bool) error {
	if int64(len(b)) > fs.limits.MaxFileSize {
		return ErrQuotaExceeded
	}
	parent, err := fs.ensureParentDirs(np, false)
	if err != nil {
		return err
	}
	_, name := splitParent(np)
	if name == "" {
		return ErrInvalid
	}
	existing, ok := parent.Entries[name]
	var newLen int64
	if append_ && ok && existing.Kind == RegularFile {
		newLen = int64(len(existing.Content)) + int64(len(b))
	} else {
		newLen = int64(len(b))
	}
	var delta int64
	if ok && existing.Kind == RegularFile {
		delta = newLen - int64(len(existing.Content))
	} else {
		delta = newLen
	}
	if fs.totalBytes+delta > fs.limits.MaxTotalSize {
		return ErrQuotaExceeded
	}
	if !ok {
		if fs.fileCount+1 > fs.limits.MaxFileCount {
			return ErrQuotaExceeded
		}
		fs.fileCount++
	}
	var content []byte
	if append_ && ok && existing.Kind == RegularFile {
		content = append(append([]byte{}, existing.Content...), b...)
	} else {
		content = append([]byte{}, b...)
	}
	blk := fs.internBlock(content)
	if ok && existing.Kind == RegularFile {
		fs.releaseBlock(existing.block)
	}
	parent.Entries[name] = &Inode{
		Kind:    RegularFile,
		Mode:    PermDefaultFile,
		MTime:   time.Time{},
		Content: blk.data,
		block:   blk,
	}
	fs.totalBytes += delta
	return nil
}

// Write truncates (or creates) the file at path with the given bytes,
// atomically from the caller's perspective (spec.md §3 invariant).
func (fs *FS) Write(path string, b []byte) error {
	np, err := Normalize(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Write(rel, b)
	}
	return fs.writeInode(np, b, false)
}

// Append appends bytes to the file at path, creating it if absent.
func (fs *FS) Append(path string, b []byte) error {
	np, err := Normalize(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Append(rel, b)
	}
	return fs.writeInode(np, b, true)
}

// Mkdir creates a directory, optionally creating parents.
func (fs *FS) Mkdir(path string, parents bool) error {
	np, err := Normalize(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Mkdir(rel, parents)
	}
	if np == "/" {
		return ErrAlreadyExists
	}
	parent, err := fs.ensureParentDirs(np, parents)
	if err != nil {
		return err
	}
	_, name := splitParent(np)
	if _, ok := parent.Entries[name]; ok {
		return ErrAlreadyExists
	}
	parent.Entries[name] = &Inode{Kind: Directory, Mode: PermDefaultDir, Entries: make(map[string]*Inode)}
	return nil
}

// Remove deletes a file or (if recursive) a directory tree.
func (fs *FS) Remove(path string, recursive bool) error {
	np, err := Normalize(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Remove(rel, recursive)
	}
	if np == "/" {
		return ErrInvalid
	}
	dir, name := splitParent(np)
	parentNode, err := fs.lookup(dir)
	if err != nil {
		return err
	}
	n, ok := parentNode.Entries[name]
	if !ok {
		return ErrNotFound
	}
	if n.Kind == Directory && len(n.Entries) > 0 && !recursive {
		return fmt.Errorf("%w: directory not empty", ErrInvalid)
	}
	fs.countRemoved(n)
	delete(parentNode.Entries, name)
	return nil
}

func (fs *FS) countRemoved(n *Inode) {
	if n.Kind == RegularFile {
		fs.totalBytes -= int64(len(n.Content))
		fs.fileCount--
		fs.releaseBlock(n.block)
		return
	}
	for _, c := range n.Entries {
		fs.countRemoved(c)
	}
}

// Exists reports whether path resolves to any inode.
func (fs *FS) Exists(path string) bool {
	np, err := Normalize(path)
	if err != nil {
		return false
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Exists(rel)
	}
	_, err = fs.lookup(np)
	return err == nil
}

// Metadata returns file/directory metadata.
func (fs *FS) Metadata(path string) (Metadata, error) {
	np, err := Normalize(path)
	if err != nil {
		return Metadata{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.Metadata(rel)
	}
	n, err := fs.lookup(np)
	if err != nil {
		return Metadata{}, err
	}
	size := int64(0)
	if n.Kind == RegularFile {
		size = int64(len(n.Content))
	}
	return Metadata{Kind: n.Kind, Size: size, Mode: n.Mode, MTime: n.MTime}, nil
}

// ListDir returns child names in lexicographic order (names are normalized
// byte strings; order in the underlying map is irrelevant per spec.md §3).
func (fs *FS) ListDir(path string) ([]string, error) {
	np, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	target, rel := fs.resolveMount(np)
	if target != fs {
		return target.ListDir(rel)
	}
	n, err := fs.lookup(np)
	if err != nil {
		return nil, err
	}
	if n.Kind != Directory {
		return nil, ErrNotDir
	}
	names := make([]string, 0, len(n.Entries))
	for name := range n.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Rename moves an inode from src to dst, both normalized first.
func (fs *FS) Rename(src, dst string) error {
	nsrc, err := Normalize(src)
	if err != nil {
		return err
	}
	ndst, err := Normalize(dst)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	srcDir, srcName := splitParent(nsrc)
	srcParent, err := fs.lookup(srcDir)
	if err != nil {
		return err
	}
	n, ok := srcParent.Entries[srcName]
	if !ok {
		return ErrNotFound
	}
	dstParent, err := fs.ensureParentDirs(ndst, false)
	if err != nil {
		return err
	}
	_, dstName := splitParent(ndst)
	dstParent.Entries[dstName] = n
	delete(srcParent.Entries, srcName)
	return nil
}
