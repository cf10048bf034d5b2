package ast

// ElementInit is one call to a collection's add method inside a ListInit
// or a MemberListBinding. It is not an expression on its own.
type ElementInit struct {
	AddMethod MethodRef
	Args      []Node
}

// BindingKind identifies the variant of a MemberBinding.
type BindingKind string

const (
	BindingAssignment BindingKind = "assignment"     // member = expression
	BindingList       BindingKind = "list_binding"   // member { initializers }
	BindingMember     BindingKind = "member_binding" // member { bindings }
)

// MemberBinding binds one member of an object under construction.
// The set of implementations is sealed.
type MemberBinding interface {
	BindingKind() BindingKind
	BoundMember() MemberRef

	binding()
}

// MemberAssignment assigns an expression to a member.
type MemberAssignment struct {
	Member MemberRef
	Expr   Node
}

// MemberListBinding populates a collection member through element initializers.
type MemberListBinding struct {
	Member       MemberRef
	Initializers []*ElementInit
}

// MemberMemberBinding recursively binds the sub-members of a member.
type MemberMemberBinding struct {
	Member   MemberRef
	Bindings []MemberBinding
}

func (*MemberAssignment) binding()    {}
func (*MemberListBinding) binding()   {}
func (*MemberMemberBinding) binding() {}

func (*MemberAssignment) BindingKind() BindingKind    { return BindingAssignment }
func (*MemberListBinding) BindingKind() BindingKind   { return BindingList }
func (*MemberMemberBinding) BindingKind() BindingKind { return BindingMember }

func (b *MemberAssignment) BoundMember() MemberRef    { return b.Member }
func (b *MemberListBinding) BoundMember() MemberRef   { return b.Member }
func (b *MemberMemberBinding) BoundMember() MemberRef { return b.Member }
