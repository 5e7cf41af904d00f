package scene

import (
	"io"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/utils"
)

// FileHost is a Host backed by a YAML scene description. It exists so
// the command line tool and tests can run conversions without a live
// DCC application on the other side; the schema mirrors what a real
// host exposes: hierarchy, rest poses, rotation modes and sparse
// per-frame keys.
type FileHost struct {
	Fps        float64     `yaml:"fps"`
	FrameStart int         `yaml:"frame_start"`
	FrameEnd   int         `yaml:"frame_end"`
	Nodes      []*FileNode `yaml:"nodes"`

	graph *Graph
}

type FileNode struct {
	Name         string     `yaml:"name"`
	Parent       string     `yaml:"parent,omitempty"`
	RotationMode string     `yaml:"rotation_mode,omitempty"`
	Deform       bool       `yaml:"deform,omitempty"`
	Rest         FilePose   `yaml:"rest,omitempty"`
	Keys         []*FileKey `yaml:"keys,omitempty"`
}

// FilePose holds a static transform; euler angles are in degrees.
type FilePose struct {
	Translation *[3]float64 `yaml:"translation,omitempty"`
	EulerDeg    *[3]float64 `yaml:"rotation_euler,omitempty"`
	Quaternion  *[4]float64 `yaml:"rotation_quaternion,omitempty"` // w,x,y,z
	Scale       *[3]float64 `yaml:"scale,omitempty"`
}

type FileKey struct {
	Frame       int         `yaml:"frame"`
	Translation *[3]float64 `yaml:"translation,omitempty"`
	EulerDeg    *[3]float64 `yaml:"rotation_euler,omitempty"`
	Quaternion  *[4]float64 `yaml:"rotation_quaternion,omitempty"`
	Scale       *[3]float64 `yaml:"scale,omitempty"`
}

func (k *FileKey) has(prop Property) bool {
	switch prop {
	case PropTranslation:
		return k.Translation != nil
	case PropRotation:
		return k.EulerDeg != nil || k.Quaternion != nil
	case PropScale:
		return k.Scale != nil
	}
	return false
}

func LoadFileHost(r io.Reader) (*FileHost, error) {
	h := &FileHost{}
	if err := yaml.NewDecoder(r).Decode(h); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode scene yaml")
	}
	if h.Fps == 0 {
		h.Fps = 24
	}
	for _, n := range h.Nodes {
		sort.Slice(n.Keys, func(i, j int) bool { return n.Keys[i].Frame < n.Keys[j].Frame })
	}
	return h, nil
}

func (h *FileHost) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return errors.Wrapf(err, "Failed to encode scene yaml")
	}
	return enc.Close()
}

func (p *FilePose) sample(mode rotation.Mode) TransformSample {
	s := IdentitySample()
	if p.Translation != nil {
		s.Translation = mgl64.Vec3(*p.Translation)
	}
	if p.Quaternion != nil {
		q := mgl64.Quat{W: p.Quaternion[0], V: mgl64.Vec3{p.Quaternion[1], p.Quaternion[2], p.Quaternion[3]}}
		s.Rotation = rotation.NewQuaternion(q)
	} else if p.EulerDeg != nil {
		order := rotation.OrderXYZ
		if mode.IsEuler() {
			order = mode.EulerOrder()
		}
		s.Rotation = rotation.NewEuler(utils.DegToRadV3(mgl64.Vec3(*p.EulerDeg)), order)
	}
	if p.Scale != nil {
		s.Scale = mgl64.Vec3(*p.Scale)
	}
	return s
}

func (h *FileHost) nodeMode(n *FileNode) (rotation.Mode, error) {
	if n.RotationMode == "" {
		return rotation.ModeXYZ, nil
	}
	return rotation.ParseMode(n.RotationMode)
}

func (h *FileHost) Graph() (*Graph, error) {
	if h.graph != nil {
		return h.graph, nil
	}
	nodes := make([]Node, len(h.Nodes))
	index := make(map[string]int, len(h.Nodes))
	for i, fn := range h.Nodes {
		mode, err := h.nodeMode(fn)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", fn.Name)
		}
		parent := NoParent
		if fn.Parent != "" {
			p, ok := index[fn.Parent]
			if !ok {
				return nil, errors.Errorf("Node %q references unknown or later parent %q", fn.Name, fn.Parent)
			}
			parent = p
		}
		rest := fn.Rest.sample(mode)
		nodes[i] = Node{
			Name:      fn.Name,
			Parent:    parent,
			Rest:      rest.Mat4(),
			RestScale: rest.Scale,
			Mode:      mode,
			Deform:    fn.Deform,
		}
		index[fn.Name] = i
	}
	g, err := NewGraph(nodes)
	if err != nil {
		return nil, err
	}
	h.graph = g
	return g, nil
}

func lerp3(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{
		utils.Lerp(a[0], b[0], t),
		utils.Lerp(a[1], b[1], t),
		utils.Lerp(a[2], b[2], t),
	}
}

// neighbors returns the closest keys carrying prop at or around frame.
func neighbors(keys []*FileKey, prop Property, frame int) (prev, next *FileKey) {
	for _, k := range keys {
		if !k.has(prop) {
			continue
		}
		if k.Frame <= frame {
			prev = k
		} else {
			next = k
			break
		}
	}
	return prev, next
}

func (h *FileHost) LocalAt(node int, frame int) (TransformSample, error) {
	if node < 0 || node >= len(h.Nodes) {
		return TransformSample{}, errors.Errorf("Node index %d outside scene", node)
	}
	fn := h.Nodes[node]
	mode, err := h.nodeMode(fn)
	if err != nil {
		return TransformSample{}, err
	}

	s := IdentitySample()
	if mode.IsEuler() {
		s.Rotation = rotation.NewEuler(mgl64.Vec3{}, mode.EulerOrder())
	}

	for _, prop := range Properties {
		prev, next := neighbors(fn.Keys, prop, frame)
		if prev == nil && next == nil {
			continue
		}
		var at *FileKey
		var t float64
		interp := false
		switch {
		case prev == nil:
			at = next
		case next == nil || prev.Frame == frame:
			at = prev
		default:
			interp = true
			t = float64(frame-prev.Frame) / float64(next.Frame-prev.Frame)
		}

		switch prop {
		case PropTranslation:
			if interp {
				s.Translation = mgl64.Vec3(lerp3(*prev.Translation, *next.Translation, t))
			} else {
				s.Translation = mgl64.Vec3(*at.Translation)
			}
		case PropScale:
			if interp {
				s.Scale = mgl64.Vec3(lerp3(*prev.Scale, *next.Scale, t))
			} else {
				s.Scale = mgl64.Vec3(*at.Scale)
			}
		case PropRotation:
			s.Rotation = rotationAt(mode, prev, next, at, t, interp)
		}
	}
	return s, nil
}

func keyQuat(k *FileKey) mgl64.Quat {
	if k.Quaternion != nil {
		return mgl64.Quat{W: k.Quaternion[0], V: mgl64.Vec3{k.Quaternion[1], k.Quaternion[2], k.Quaternion[3]}}
	}
	return rotation.FromEulerXYZ(utils.DegToRadV3(mgl64.Vec3(*k.EulerDeg)))
}

func keyEuler(k *FileKey, order rotation.Order) mgl64.Vec3 {
	if k.EulerDeg != nil {
		return utils.DegToRadV3(mgl64.Vec3(*k.EulerDeg))
	}
	return rotation.ToEuler(keyQuat(k), order)
}

func rotationAt(mode rotation.Mode, prev, next, at *FileKey, t float64, interp bool) rotation.Rotation {
	if mode == rotation.ModeQuaternion {
		if !interp {
			return rotation.NewQuaternion(keyQuat(at))
		}
		return rotation.NewQuaternion(mgl64.QuatNlerp(keyQuat(prev), keyQuat(next), t))
	}

	order := rotation.OrderXYZ
	if mode.IsEuler() {
		order = mode.EulerOrder()
	}
	if !interp {
		return rotation.NewEuler(keyEuler(at, order), order)
	}
	a := keyEuler(prev, order)
	b := rotation.CompatibleEuler(keyEuler(next, order), a)
	return rotation.NewEuler(mgl64.Vec3{
		utils.Lerp(a[0], b[0], t),
		utils.Lerp(a[1], b[1], t),
		utils.Lerp(a[2], b[2], t),
	}, order)
}

func (h *FileHost) KeyedFrames(node int, prop Property) ([]int, error) {
	if node < 0 || node >= len(h.Nodes) {
		return nil, errors.Errorf("Node index %d outside scene", node)
	}
	frames := make([]int, 0, len(h.Nodes[node].Keys))
	for _, k := range h.Nodes[node].Keys {
		if k.has(prop) {
			frames = append(frames, k.Frame)
		}
	}
	return frames, nil
}

func (h *FileHost) FrameRange() (int, int) {
	return h.FrameStart, h.FrameEnd
}

func (h *FileHost) FrameRate() float64 {
	return h.Fps
}

func (h *FileHost) SetLocal(node int, frame int, props []Property, s TransformSample) error {
	if node < 0 || node >= len(h.Nodes) {
		return errors.Errorf("Node index %d outside scene", node)
	}
	fn := h.Nodes[node]
	mode, err := h.nodeMode(fn)
	if err != nil {
		return err
	}

	var key *FileKey
	at := len(fn.Keys)
	for i, k := range fn.Keys {
		if k.Frame == frame {
			key = k
			break
		}
		if k.Frame > frame {
			at = i
			break
		}
	}
	if key == nil {
		key = &FileKey{Frame: frame}
		fn.Keys = append(fn.Keys, nil)
		copy(fn.Keys[at+1:], fn.Keys[at:])
		fn.Keys[at] = key
	}

	for _, prop := range props {
		switch prop {
		case PropTranslation:
			t := [3]float64(s.Translation)
			key.Translation = &t
		case PropScale:
			sc := [3]float64(s.Scale)
			key.Scale = &sc
		case PropRotation:
			if mode == rotation.ModeQuaternion {
				q := s.Rotation.Quaternion()
				v := [4]float64{q.W, q.X(), q.Y(), q.Z()}
				key.Quaternion = &v
				key.EulerDeg = nil
			} else {
				order := rotation.OrderXYZ
				if mode.IsEuler() {
					order = mode.EulerOrder()
				}
				e := [3]float64(utils.RadToDegV3(s.Rotation.EulerIn(order)))
				key.EulerDeg = &e
				key.Quaternion = nil
			}
		}
	}
	return nil
}
