package driver

import (
	"context"
	"fmt"

	"hhdecl/internal/names"
	"hhdecl/internal/trace"
	"hhdecl/internal/typing"
)

// View builds a fresh typed view of one class.
func (ws *Workspace) View(ctx context.Context, name names.TypeName) (*typing.ClassType, error) {
	fc, err := ws.Store.GetFoldedClass(name)
	if err != nil {
		return nil, err
	}
	if fc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return typing.NewClassType(ws.Store, fc, typing.WithTracer(trace.FromContext(ctx), trace.CurrentSpan(ctx))), nil
}

// Views builds one view per class, in order.
func (ws *Workspace) Views(ctx context.Context, classes []names.TypeName) ([]*typing.ClassType, error) {
	done := ws.timer.Track("fold")
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "fold", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	classes = ws.Select(classes)
	out := make([]*typing.ClassType, 0, len(classes))
	for _, name := range classes {
		view, err := ws.View(ctx, name)
		if err != nil {
			span.Fail(err)
			done("failed")
			return nil, err
		}
		out = append(out, view)
	}
	span.End("")
	done(fmt.Sprintf("%d views", len(out)))
	return out, nil
}

// MemberKind selects one of the member buckets of a class.
type MemberKind uint8

const (
	MemberProp MemberKind = iota + 1
	MemberStaticProp
	MemberMethod
	MemberStaticMethod
	MemberConstructor
)

func (k MemberKind) String() string {
	switch k {
	case MemberProp:
		return "prop"
	case MemberStaticProp:
		return "static-prop"
	case MemberMethod:
		return "method"
	case MemberStaticMethod:
		return "static-method"
	case MemberConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

// ParseMemberKind converts the CLI spelling of a kind.
func ParseMemberKind(s string) (MemberKind, error) {
	for k := MemberProp; k <= MemberConstructor; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid member kind %q (expected: prop|static-prop|method|static-method|constructor)", s)
}

// Lookup resolves a single member. It returns nil, nil when the class has no
// such member; name is ignored for constructors.
func (ws *Workspace) Lookup(ctx context.Context, class names.TypeName, kind MemberKind, name string) (*typing.ClassElt, error) {
	view, err := ws.View(ctx, class)
	if err != nil {
		return nil, err
	}
	switch kind {
	case MemberProp:
		return view.GetProp(names.Prop(name))
	case MemberStaticProp:
		return view.GetStaticProp(names.Prop(name))
	case MemberMethod:
		return view.GetMethod(names.Method(name))
	case MemberStaticMethod:
		return view.GetStaticMethod(names.Method(name))
	case MemberConstructor:
		return view.GetConstructor()
	default:
		return nil, fmt.Errorf("invalid member kind %d", kind)
	}
}
